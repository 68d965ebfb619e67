package credential

import (
	"context"
	"testing"

	"github.com/lumenauth/authd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Client{}, &models.Token{}, &models.AuthCode{})
	require.NoError(t, err)

	return db
}

func TestClientStore_Create_ConfidentialHasSecret(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)

	client, secret, err := store.Create(context.Background(), ClientInput{Name: "test app"})
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.NotNil(t, client.SecretHash)
	assert.True(t, client.Confidential)
	assert.Equal(t, []string{string(models.GrantAuthorizationCode), string(models.GrantRefreshToken)}, []string(client.GrantTypes))
}

func TestClientStore_Create_PublicHasNoSecret(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)

	confidential := false
	client, secret, err := store.Create(context.Background(), ClientInput{Name: "spa", Confidential: &confidential})
	require.NoError(t, err)
	assert.Empty(t, secret)
	assert.Nil(t, client.SecretHash)
}

func TestClientStore_VerifySecret(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)

	client, secret, err := store.Create(context.Background(), ClientInput{Name: "test app"})
	require.NoError(t, err)

	assert.True(t, store.VerifySecret(client, secret))
	assert.False(t, store.VerifySecret(client, "wrong-secret"))
}

func TestClientStore_VerifySecret_PublicClientAlwaysFalse(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)

	confidential := false
	client, _, err := store.Create(context.Background(), ClientInput{Name: "spa", Confidential: &confidential})
	require.NoError(t, err)

	assert.False(t, store.VerifySecret(client, "anything"))
}

func TestClientStore_Find_ReturnsRevokedToo(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)
	ctx := context.Background()

	client, _, err := store.Create(ctx, ClientInput{Name: "test app"})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, client.ID))

	found, err := store.Find(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, found.Revoked)
}

func TestClientStore_Find_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)

	_, err := store.Find(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestClientStore_List_ReturnsAllClients(t *testing.T) {
	db := setupTestDB(t)
	store := NewClientStore(db)
	ctx := context.Background()

	first, _, err := store.Create(ctx, ClientInput{Name: "first"})
	require.NoError(t, err)
	second, _, err := store.Create(ctx, ClientInput{Name: "second"})
	require.NoError(t, err)

	rows, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	ids := []string{rows[0].ID, rows[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestClientStore_Destroy_CascadesAuthCodesAndTokens(t *testing.T) {
	db := setupTestDB(t)
	clients := NewClientStore(db)
	tokens := NewTokenStore(db)
	codes := NewAuthCodeStore(db)
	ctx := context.Background()

	client, _, err := clients.Create(ctx, ClientInput{Name: "test app"})
	require.NoError(t, err)

	userID := "user-1"
	_, _, _, err = tokens.Create(ctx, TokenParams{UserID: &userID, ClientID: client.ID, AccessTokenLifetime: 3600e9})
	require.NoError(t, err)
	_, _, err = codes.Create(ctx, AuthCodeParams{ClientID: client.ID, UserID: userID, RedirectURI: "https://example.com/cb", Lifetime: 600e9})
	require.NoError(t, err)

	require.NoError(t, clients.Destroy(ctx, client.ID))

	var tokenCount, codeCount, clientCount int64
	db.Model(&models.Token{}).Where("client_id = ?", client.ID).Count(&tokenCount)
	db.Model(&models.AuthCode{}).Where("client_id = ?", client.ID).Count(&codeCount)
	db.Model(&models.Client{}).Where("id = ?", client.ID).Count(&clientCount)

	assert.Zero(t, tokenCount)
	assert.Zero(t, codeCount)
	assert.Zero(t, clientCount)
}
