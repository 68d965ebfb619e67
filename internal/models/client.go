package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringList persists a []string as a JSON array column. gorm has no native
// slice-of-string type for sqlite/postgres, so it round-trips through
// encoding/json the same way the rest of this codebase marshals structured
// values for storage.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("models: StringList.Scan: unsupported source type")
	}
	if len(bytes) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// NullableStringList is the same JSON-array encoding as StringList but
// distinguishes "column is NULL" (no allow-list configured, meaning "any
// registered scope") from an empty list. A nil *NullableStringList is
// persisted as SQL NULL.
type NullableStringList []string

func (s *NullableStringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]string(*s))
}

func (s *NullableStringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("models: NullableStringList.Scan: unsupported source type")
	}
	var list []string
	if err := json.Unmarshal(bytes, &list); err != nil {
		return err
	}
	*s = NullableStringList(list)
	return nil
}

// GrantType is one of the three grant types a client may be permitted to use.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantRefreshToken      GrantType = "refresh_token"
)

// Client is an application registered to obtain tokens (spec §3 "Client").
type Client struct {
	ID           string              `gorm:"primaryKey;type:varchar(36)"`
	Name         string              `gorm:"not null"`
	SecretHash   *string             `gorm:"column:secret;index"`
	RedirectURIs StringList          `gorm:"column:redirect_uris;type:text;not null"`
	Scopes       *NullableStringList `gorm:"column:scopes;type:text"`
	GrantTypes   StringList          `gorm:"column:grant_types;type:text;not null"`
	Confidential bool                `gorm:"not null"`
	FirstParty   bool                `gorm:"column:first_party;not null;default:false"`
	Revoked      bool                `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Tokens    []Token     `gorm:"constraint:OnDelete:CASCADE"`
	AuthCodes []AuthCode  `gorm:"constraint:OnDelete:CASCADE"`
}

func (Client) TableName() string {
	return "clients"
}

// BeforeCreate assigns a UUID primary key when the caller has not set one,
// mirroring the teacher's use of google/uuid for entity identity.
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AllowsGrant reports whether g is among the client's permitted grant types.
func (c *Client) AllowsGrant(g GrantType) bool {
	for _, v := range c.GrantTypes {
		if v == string(g) {
			return true
		}
	}
	return false
}

// HasRedirectURI reports whether uri matches a registered redirect URI
// byte-for-byte, per spec §3's exact-match invariant.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, v := range c.RedirectURIs {
		if v == uri {
			return true
		}
	}
	return false
}
