package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Token is an access token with an optional co-located refresh token; one
// row covers both halves of the pair (spec §3 "Token").
type Token struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)"`
	UserID           *string    `gorm:"column:user_id;index"`
	ClientID         string     `gorm:"column:client_id;not null;index"`
	Name             *string    `gorm:"column:name"`
	Scopes           StringList `gorm:"type:text;not null"`
	AccessTokenHash  string     `gorm:"column:access_token_hash;uniqueIndex;not null"`
	RefreshTokenHash *string    `gorm:"column:refresh_token_hash;uniqueIndex"`
	ExpiresAt        time.Time  `gorm:"column:expires_at;not null"`
	RefreshExpiresAt *time.Time `gorm:"column:refresh_expires_at"`
	LastUsedAt       *time.Time `gorm:"column:last_used_at"`
	RevokedAt        *time.Time `gorm:"column:revoked_at"`
	CreatedAt        time.Time

	Client Client `gorm:"foreignKey:ClientID"`
}

func (Token) TableName() string {
	return "tokens"
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the access half of the token has expired as of now.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsRevoked reports whether the token has been soft-revoked.
func (t *Token) IsRevoked() bool {
	return t.RevokedAt != nil
}

// HasRefresh reports whether this row carries a refresh half.
func (t *Token) HasRefresh() bool {
	return t.RefreshTokenHash != nil
}

// IsPersonalAccessToken reports whether this is a human-named token
// (as opposed to one minted as part of a grant exchange).
func (t *Token) IsPersonalAccessToken() bool {
	return t.Name != nil
}
