package models

import (
	"time"
)

// OAuthToken persists issued access tokens so they can be revoked on logout
type OAuthToken struct {
	ID           uint    `gorm:"primaryKey"`
	ClientID     string  `gorm:"not null"`
	UserID       string  `gorm:"not null;index"`
	AccessToken  string  `gorm:"uniqueIndex;not null"`
	RefreshToken *string `gorm:"index"` // nil when no refresh token was issued
	Scopes       string
	ExpiresAt    time.Time `gorm:"not null"`
	// RefreshExpiresAt is nil together with RefreshToken
	RefreshExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}
