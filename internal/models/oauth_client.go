package models

import (
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OAuthClient is an application allowed to request tokens on behalf of users.
// The web frontend is registered as a first-party client at startup.
type OAuthClient struct {
	ID        string `gorm:"primaryKey"`
	Secret    string `gorm:"not null"` // bcrypt hash
	Name      string
	Domain    string
	UserID    uint // owner, zero for first-party clients
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

// GetID implements oauth2.ClientInfo
func (c *OAuthClient) GetID() string { return c.ID }

// GetSecret implements oauth2.ClientInfo
func (c *OAuthClient) GetSecret() string { return c.Secret }

// GetDomain implements oauth2.ClientInfo
func (c *OAuthClient) GetDomain() string { return c.Domain }

// IsPublic implements oauth2.ClientInfo
func (c *OAuthClient) IsPublic() bool { return false }

// GetUserID implements oauth2.ClientInfo
func (c *OAuthClient) GetUserID() string {
	if c.UserID == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(c.UserID), 10)
}

// VerifyPassword implements oauth2.ClientPasswordVerifier against the hashed secret
func (c *OAuthClient) VerifyPassword(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(secret)) == nil
}
