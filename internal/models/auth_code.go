package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PKCEMethod is the code challenge method bound to an authorization code.
type PKCEMethod string

const (
	PKCEMethodS256  PKCEMethod = "S256"
	PKCEMethodPlain PKCEMethod = "plain"
)

// AuthCode is a single-use bearer that authorizes a token exchange
// (spec §3 "Authorization Code"). The lookup key stored in Code is the
// SHA-256 hash of the plaintext handed to the client; the plaintext itself
// is never persisted.
type AuthCode struct {
	ID                  string `gorm:"primaryKey;type:varchar(36)"`
	ClientID            string `gorm:"column:client_id;not null;index"`
	UserID              string `gorm:"column:user_id;not null"`
	Code                string `gorm:"uniqueIndex;not null"`
	RedirectURI         string `gorm:"column:redirect_uri;not null"`
	Scopes              StringList `gorm:"type:text;not null"`
	CodeChallenge       *string    `gorm:"column:code_challenge"`
	CodeChallengeMethod *string    `gorm:"column:code_challenge_method"`
	ExpiresAt           time.Time  `gorm:"column:expires_at;not null"`
	UsedAt              *time.Time `gorm:"column:used_at"`
	CreatedAt           time.Time

	Client Client `gorm:"foreignKey:ClientID"`
}

func (AuthCode) TableName() string {
	return "auth_codes"
}

func (c *AuthCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// RequiresPKCE reports whether the code was bound to a PKCE challenge.
func (c *AuthCode) RequiresPKCE() bool {
	return c.CodeChallenge != nil && *c.CodeChallenge != ""
}
