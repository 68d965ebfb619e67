package credential

import (
	"context"
	"errors"
	"time"

	"github.com/lumenauth/authd/internal/models"
	"gorm.io/gorm"
)

// ErrTokenNotFound is returned by token lookups when no row matches.
var ErrTokenNotFound = errors.New("credential: token not found")

// TokenParams describes the fields needed to mint a token pair.
type TokenParams struct {
	UserID               *string // nil for client_credentials
	ClientID             string
	Name                 *string // personal access tokens only
	Scopes               []string
	IssueRefresh         bool
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
}

// TokenStore implements the Token operations of spec §4.3.
type TokenStore struct {
	db *gorm.DB
}

// NewTokenStore wraps a gorm connection as a TokenStore.
func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Create mints a random 40-byte access secret and, when requested and
// userID is non-nil, a random 40-byte refresh secret. Returns the
// plaintext access secret, the plaintext refresh secret (empty if none),
// and the persisted row.
func (s *TokenStore) Create(ctx context.Context, p TokenParams) (string, string, *models.Token, error) {
	plainAccess, err := newCredentialSecret()
	if err != nil {
		return "", "", nil, err
	}

	row := &models.Token{
		UserID:    p.UserID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		Scopes:    models.StringList(p.Scopes),
		ExpiresAt: time.Now().Add(p.AccessTokenLifetime),
	}
	accessHash := hashSecret(plainAccess)
	row.AccessTokenHash = accessHash

	var plainRefresh string
	if p.IssueRefresh && p.UserID != nil {
		plainRefresh, err = newCredentialSecret()
		if err != nil {
			return "", "", nil, err
		}
		refreshHash := hashSecret(plainRefresh)
		row.RefreshTokenHash = &refreshHash
		refreshExpiresAt := time.Now().Add(p.RefreshTokenLifetime)
		row.RefreshExpiresAt = &refreshExpiresAt
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", "", nil, err
	}
	return plainAccess, plainRefresh, row, nil
}

// Validate hashes plainAccess, looks up the row, and rejects it if revoked
// or expired. On success it bumps last_used_at fire-and-forget; the
// caller is not blocked on, nor fails because of, that write.
func (s *TokenStore) Validate(ctx context.Context, plainAccess string) (*models.Token, error) {
	hash := hashSecret(plainAccess)

	var row models.Token
	err := s.db.WithContext(ctx).Where("access_token_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	if row.IsRevoked() {
		return nil, ErrTokenNotFound
	}
	if row.IsExpired(time.Now()) {
		return nil, ErrTokenNotFound
	}

	go s.touchLastUsed(row.ID)

	return &row, nil
}

// ValidateRefresh is the symmetric counterpart to Validate for the refresh
// half of the pair: rejects if revoked or refresh_expires_at has passed.
func (s *TokenStore) ValidateRefresh(ctx context.Context, plainRefresh string) (*models.Token, error) {
	hash := hashSecret(plainRefresh)

	var row models.Token
	err := s.db.WithContext(ctx).Where("refresh_token_hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	if row.IsRevoked() {
		return nil, ErrTokenNotFound
	}
	if row.RefreshExpiresAt == nil || time.Now().After(*row.RefreshExpiresAt) {
		return nil, ErrTokenNotFound
	}

	return &row, nil
}

// touchLastUsed runs detached from the request's context: a failure here
// must never fail the bearer check that triggered it.
func (s *TokenStore) touchLastUsed(id string) {
	now := time.Now()
	if err := s.db.Model(&models.Token{}).Where("id = ?", id).Update("last_used_at", now).Error; err != nil {
		log.WithError(err).WithField("token_id", id).Warn("failed to update last_used_at")
	}
}

// Revoke sets revoked_at to now. Calling it on an already-revoked token
// re-stamps the timestamp, which is harmless: IsRevoked only checks
// presence, never the value.
func (s *TokenStore) Revoke(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Token{}).
		Where("id = ?", id).
		Update("revoked_at", time.Now()).Error
}

// RotateRefresh revokes oldID and creates its replacement inside a single
// gorm transaction, so a reissue failure rolls the revoke back instead of
// leaving the refresh token consumed with nothing issued in its place
// (spec §4.4, §8).
func (s *TokenStore) RotateRefresh(ctx context.Context, oldID string, p TokenParams) (string, string, *models.Token, error) {
	plainAccess, err := newCredentialSecret()
	if err != nil {
		return "", "", nil, err
	}

	row := &models.Token{
		UserID:    p.UserID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		Scopes:    models.StringList(p.Scopes),
		ExpiresAt: time.Now().Add(p.AccessTokenLifetime),
	}
	row.AccessTokenHash = hashSecret(plainAccess)

	var plainRefresh string
	if p.IssueRefresh && p.UserID != nil {
		plainRefresh, err = newCredentialSecret()
		if err != nil {
			return "", "", nil, err
		}
		refreshHash := hashSecret(plainRefresh)
		row.RefreshTokenHash = &refreshHash
		refreshExpiresAt := time.Now().Add(p.RefreshTokenLifetime)
		row.RefreshExpiresAt = &refreshExpiresAt
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Token{}).
			Where("id = ?", oldID).
			Update("revoked_at", time.Now()).Error; err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return "", "", nil, err
	}
	return plainAccess, plainRefresh, row, nil
}

// RevokeAllFor bulk-revokes every non-revoked token belonging to userID.
func (s *TokenStore) RevokeAllFor(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.Token{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

// RevokeAllForClient bulk-revokes every non-revoked token belonging to
// userID under a specific clientID.
func (s *TokenStore) RevokeAllForClient(ctx context.Context, userID, clientID string) error {
	return s.db.WithContext(ctx).Model(&models.Token{}).
		Where("user_id = ? AND client_id = ? AND revoked_at IS NULL", userID, clientID).
		Update("revoked_at", time.Now()).Error
}

// AllForUser lists userID's non-revoked, non-expired tokens newest-first.
func (s *TokenStore) AllForUser(ctx context.Context, userID string) ([]models.Token, error) {
	var rows []models.Token
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// PersonalTokensFor lists userID's personal access tokens, the same set
// as AllForUser, filtered to the configured personal access client. Empty
// if none is configured.
func (s *TokenStore) PersonalTokensFor(ctx context.Context, userID, personalAccessClientID string) ([]models.Token, error) {
	if personalAccessClientID == "" {
		return nil, nil
	}
	var rows []models.Token
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND client_id = ? AND revoked_at IS NULL AND expires_at > ?",
			userID, personalAccessClientID, time.Now()).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// Prune deletes rows where (access expired AND no refresh) OR (refresh
// expired) OR (revoked and older than revokedOlderThanDays).
func (s *TokenStore) Prune(ctx context.Context, revokedOlderThanDays int) (int64, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -revokedOlderThanDays)

	result := s.db.WithContext(ctx).
		Where("(expires_at < ? AND refresh_token_hash IS NULL)", now).
		Or("(refresh_expires_at IS NOT NULL AND refresh_expires_at < ?)", now).
		Or("(revoked_at IS NOT NULL AND revoked_at < ?)", cutoff).
		Delete(&models.Token{})
	return result.RowsAffected, result.Error
}
