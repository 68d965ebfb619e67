package credential

import (
	"context"
	"errors"
	"time"

	"github.com/lumenauth/authd/internal/models"
	"gorm.io/gorm"
)

// ErrClientNotFound is returned by ClientStore.Find when no row matches.
var ErrClientNotFound = errors.New("credential: client not found")

// ClientInput describes the fields a caller may set when registering a
// client; zero values fall back to the spec §4.3 defaults.
type ClientInput struct {
	Name         string
	RedirectURIs []string
	Scopes       *[]string // nil means "any registered scope"
	GrantTypes   []string  // defaults to [authorization_code, refresh_token]
	Confidential *bool     // defaults to true
	FirstParty   bool
}

// ClientStore implements the Client operations of spec §4.3 against a gorm
// connection to the Credential Store's `clients` table.
type ClientStore struct {
	db *gorm.DB
}

// NewClientStore wraps a gorm connection as a ClientStore.
func NewClientStore(db *gorm.DB) *ClientStore {
	return &ClientStore{db: db}
}

// Create allocates a random secret (confidential clients only), inserts the
// row with its hash, and returns the row plus the plaintext secret (empty
// for public clients). The plaintext is never stored or logged.
func (s *ClientStore) Create(ctx context.Context, in ClientInput) (*models.Client, string, error) {
	confidential := true
	if in.Confidential != nil {
		confidential = *in.Confidential
	}

	grantTypes := in.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{string(models.GrantAuthorizationCode), string(models.GrantRefreshToken)}
	}

	client := &models.Client{
		Name:         in.Name,
		RedirectURIs: models.StringList(in.RedirectURIs),
		GrantTypes:   models.StringList(grantTypes),
		Confidential: confidential,
		FirstParty:   in.FirstParty,
	}
	if in.Scopes != nil {
		allowed := models.NullableStringList(*in.Scopes)
		client.Scopes = &allowed
	}

	var plainSecret string
	if confidential {
		secret, err := newClientSecret()
		if err != nil {
			return nil, "", err
		}
		plainSecret = secret
		hash := hashSecret(secret)
		client.SecretHash = &hash
	}

	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return nil, "", err
	}

	log.WithField("client_id", client.ID).Info("client created")
	return client, plainSecret, nil
}

// Find returns the client regardless of revoked status; callers check
// Revoked themselves (spec §4.3).
func (s *ClientStore) Find(ctx context.Context, id string) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

// List returns every registered client, newest first. Used by the
// management HTTP surface (spec §6 "GET /clients").
func (s *ClientStore) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&clients).Error
	return clients, err
}

// VerifySecret computes the SHA-256 hash of plain and compares it against
// the client's stored hash in constant time. Returns false if the client
// has no stored secret (public client).
func (s *ClientStore) VerifySecret(client *models.Client, plain string) bool {
	if client.SecretHash == nil {
		return false
	}
	return secretsEqual(*client.SecretHash, hashSecret(plain))
}

// Revoke sets revoked=true and bumps updated_at. Idempotent.
func (s *ClientStore) Revoke(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"revoked": true, "updated_at": time.Now()}).Error
}

// Destroy hard-deletes a client and its dependent rows in the order
// spec §4.3 requires: auth_codes, tokens, client. Used by tests and tooling
// only, never from the HTTP surface.
func (s *ClientStore) Destroy(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id).Delete(&models.AuthCode{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Client{}).Error
	})
}
