package credential

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCodeStore_ConsumeSuccess(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:    "client-1",
		UserID:      "user-1",
		RedirectURI: "https://example.com/cb",
		Scopes:      []string{"read"},
		Lifetime:    10 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.NotNil(t, row.UsedAt)
}

func TestAuthCodeStore_ConsumeIsSingleUse(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:    "client-1",
		UserID:      "user-1",
		RedirectURI: "https://example.com/cb",
		Lifetime:    10 * time.Minute,
	})
	require.NoError(t, err)

	first, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "")
	require.NoError(t, err)
	assert.Nil(t, second, "replaying a consumed code must fail")
}

func TestAuthCodeStore_ConsumeWrongClientFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:    "client-1",
		UserID:      "user-1",
		RedirectURI: "https://example.com/cb",
		Lifetime:    10 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-2", "https://example.com/cb", "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAuthCodeStore_ConsumeRedirectMismatchFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:    "client-1",
		UserID:      "user-1",
		RedirectURI: "https://example.com/cb",
		Lifetime:    10 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-1", "https://example.com/other", "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAuthCodeStore_ConsumeExpiredFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:    "client-1",
		UserID:      "user-1",
		RedirectURI: "https://example.com/cb",
		Lifetime:    -1 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAuthCodeStore_ConsumePKCE_S256(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	verifier := "a-high-entropy-verifier-string-1234567890"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:            "client-1",
		UserID:              "user-1",
		RedirectURI:         "https://example.com/cb",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		Lifetime:            10 * time.Minute,
	})
	require.NoError(t, err)

	t.Run("correct verifier succeeds", func(t *testing.T) {
		row, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", verifier)
		require.NoError(t, err)
		assert.NotNil(t, row)
	})
}

func TestAuthCodeStore_ConsumePKCE_MissingVerifierFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:            "client-1",
		UserID:              "user-1",
		RedirectURI:         "https://example.com/cb",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		Lifetime:            10 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAuthCodeStore_ConsumePKCE_WrongVerifierFails(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	sum := sha256.Sum256([]byte("correct-verifier"))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	plain, _, err := store.Create(ctx, AuthCodeParams{
		ClientID:            "client-1",
		UserID:              "user-1",
		RedirectURI:         "https://example.com/cb",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		Lifetime:            10 * time.Minute,
	})
	require.NoError(t, err)

	row, err := store.Consume(ctx, plain, "client-1", "https://example.com/cb", "wrong-verifier")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestAuthCodeStore_Prune(t *testing.T) {
	db := setupTestDB(t)
	store := NewAuthCodeStore(db)
	ctx := context.Background()

	_, _, err := store.Create(ctx, AuthCodeParams{ClientID: "c", UserID: "u", RedirectURI: "r", Lifetime: -time.Minute})
	require.NoError(t, err)
	_, _, err = store.Create(ctx, AuthCodeParams{ClientID: "c", UserID: "u", RedirectURI: "r", Lifetime: time.Hour})
	require.NoError(t, err)

	n, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
