package credential

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/lumenauth/authd/internal/models"
	"gorm.io/gorm"
)

// AuthCodeParams describes the fields needed to mint an authorization code
// at the authorize-approval step.
type AuthCodeParams struct {
	ClientID            string
	UserID              string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Lifetime            time.Duration
}

// AuthCodeStore implements the Authorization Code operations of spec §4.3.
type AuthCodeStore struct {
	db *gorm.DB
}

// NewAuthCodeStore wraps a gorm connection as an AuthCodeStore.
func NewAuthCodeStore(db *gorm.DB) *AuthCodeStore {
	return &AuthCodeStore{db: db}
}

// Create generates a 40-byte random secret, hashes it, and inserts a row
// expiring after params.Lifetime. Returns the plaintext (handed to the
// client once, in the redirect) and the persisted row.
func (s *AuthCodeStore) Create(ctx context.Context, params AuthCodeParams) (string, *models.AuthCode, error) {
	plain, err := newCredentialSecret()
	if err != nil {
		return "", nil, err
	}

	row := &models.AuthCode{
		ClientID:    params.ClientID,
		UserID:      params.UserID,
		Code:        hashSecret(plain),
		RedirectURI: params.RedirectURI,
		Scopes:      models.StringList(params.Scopes),
		ExpiresAt:   time.Now().Add(params.Lifetime),
	}
	if params.CodeChallenge != "" {
		challenge := params.CodeChallenge
		method := params.CodeChallengeMethod
		row.CodeChallenge = &challenge
		row.CodeChallengeMethod = &method
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", nil, err
	}
	return plain, row, nil
}

// Consume implements the single-use exchange of spec §4.3: hash lookup
// scoped to clientID, then an atomic conditional UPDATE that sets used_at
// only if it was still NULL. The conditional UPDATE, rather than a
// check-then-set pair, is what makes concurrent double-spend impossible
// (spec §5): two goroutines racing to consume the same code will see
// RowsAffected 0 on the loser.
//
// Returns (nil, nil), no error, when the code cannot be consumed for any
// reason (absent, replayed, expired, redirect mismatch, failed PKCE), per
// spec §4.3's "return null without side effects" semantics. Distinguishing
// those cases is not the store's job: the Grant Protocol Engine maps every
// case to the same invalid_grant response.
func (s *AuthCodeStore) Consume(ctx context.Context, plain, clientID, redirectURI, codeVerifier string) (*models.AuthCode, error) {
	hash := hashSecret(plain)

	var row models.AuthCode
	err := s.db.WithContext(ctx).
		Where("code = ? AND client_id = ?", hash, clientID).
		First(&row).Error
	if err != nil {
		return nil, nil
	}

	if row.UsedAt != nil {
		return nil, nil
	}
	if time.Now().After(row.ExpiresAt) {
		return nil, nil
	}
	if row.RedirectURI != redirectURI {
		return nil, nil
	}
	if row.RequiresPKCE() {
		if !verifyPKCE(*row.CodeChallenge, valueOr(row.CodeChallengeMethod, string(models.PKCEMethodPlain)), codeVerifier) {
			return nil, nil
		}
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.AuthCode{}).
		Where("id = ? AND used_at IS NULL", row.ID).
		Update("used_at", now)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Another request won the race to consume this code.
		return nil, nil
	}

	row.UsedAt = &now
	return &row, nil
}

// Prune deletes rows that are consumed or expired. Returns the count
// removed.
func (s *AuthCodeStore) Prune(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("used_at IS NOT NULL OR expires_at < ?", time.Now()).
		Delete(&models.AuthCode{})
	return result.RowsAffected, result.Error
}

// verifyPKCE checks a presented code_verifier against a stored challenge
// per RFC 7636: for S256, BASE64URL(SHA-256(verifier)) must equal the
// challenge; for plain, the verifier must equal the challenge byte-for-byte.
// Both comparisons run in constant time since the verifier is attacker
// controlled.
func verifyPKCE(challenge, method, verifier string) bool {
	if verifier == "" {
		return false
	}
	switch method {
	case string(models.PKCEMethodS256):
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return secretsEqual(computed, challenge)
	case string(models.PKCEMethodPlain), "":
		return secretsEqual(verifier, challenge)
	default:
		return false
	}
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
