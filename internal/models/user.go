package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles carried in access tokens
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account that authors recipes and logs in with its email
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:254;not null"`
	Username  string `gorm:"uniqueIndex;size:150;not null"`
	FirstName string `gorm:"size:150;not null"`
	LastName  string `gorm:"size:150;not null"`
	Password  string `gorm:"size:150;not null"` // bcrypt hash, never the plain value once saved
	IsStaff   bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HashPassword replaces the plain password with its bcrypt hash
func (u *User) HashPassword() error {
	return u.SetPassword(u.Password)
}

// SetPassword hashes and stores the given plain password
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// Role maps the staff flag onto the token role claim
func (u *User) Role() string {
	if u.IsStaff {
		return RoleAdmin
	}
	return RoleUser
}

// Subscription is a follow relationship from User to Author
type Subscription struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_pair"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_pair;index;check:chk_subscription_not_self,user_id <> author_id"`
	CreatedAt time.Time

	User   User `gorm:"constraint:OnDelete:CASCADE"`
	Author User `gorm:"constraint:OnDelete:CASCADE"`
}
