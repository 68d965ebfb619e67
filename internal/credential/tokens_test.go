package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_CreateWithoutRefreshForClientCredentials(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)

	plainAccess, plainRefresh, row, err := store.Create(context.Background(), TokenParams{
		ClientID:            "client-1",
		Scopes:              []string{"read"},
		AccessTokenLifetime: time.Hour,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, plainAccess)
	assert.Empty(t, plainRefresh)
	assert.False(t, row.HasRefresh())
	assert.Nil(t, row.UserID)
}

func TestTokenStore_CreateWithRefreshRequiresUserID(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)

	userID := "user-1"
	_, plainRefresh, row, err := store.Create(context.Background(), TokenParams{
		UserID:               &userID,
		ClientID:             "client-1",
		IssueRefresh:         true,
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, plainRefresh)
	assert.True(t, row.HasRefresh())
	require.NotNil(t, row.RefreshExpiresAt)

	// Without a userID, no refresh is issued even if requested.
	_, plainRefresh2, row2, err := store.Create(context.Background(), TokenParams{
		ClientID:             "client-1",
		IssueRefresh:         true,
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)
	assert.Empty(t, plainRefresh2)
	assert.False(t, row2.HasRefresh())
}

func TestTokenStore_ValidateRejectsExpired(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)

	plainAccess, _, _, err := store.Create(context.Background(), TokenParams{
		ClientID:            "client-1",
		AccessTokenLifetime: -time.Minute,
	})
	require.NoError(t, err)

	_, err = store.Validate(context.Background(), plainAccess)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenStore_ValidateRejectsRevoked(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)
	ctx := context.Background()

	plainAccess, _, row, err := store.Create(ctx, TokenParams{
		ClientID:            "client-1",
		AccessTokenLifetime: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, row.ID))

	_, err = store.Validate(ctx, plainAccess)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenStore_ValidateRefresh(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)
	ctx := context.Background()

	userID := "user-1"
	_, plainRefresh, _, err := store.Create(ctx, TokenParams{
		UserID:               &userID,
		ClientID:             "client-1",
		IssueRefresh:         true,
		AccessTokenLifetime:  time.Hour,
		RefreshTokenLifetime: 24 * time.Hour,
	})
	require.NoError(t, err)

	row, err := store.ValidateRefresh(ctx, plainRefresh)
	require.NoError(t, err)
	assert.Equal(t, userID, *row.UserID)

	_, err = store.ValidateRefresh(ctx, "not-a-real-refresh-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenStore_RevokeAllFor(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)
	ctx := context.Background()

	userID := "user-1"
	_, _, t1, err := store.Create(ctx, TokenParams{UserID: &userID, ClientID: "client-1", AccessTokenLifetime: time.Hour})
	require.NoError(t, err)
	_, _, t2, err := store.Create(ctx, TokenParams{UserID: &userID, ClientID: "client-2", AccessTokenLifetime: time.Hour})
	require.NoError(t, err)

	require.NoError(t, store.RevokeAllFor(ctx, userID))

	rows, err := store.AllForUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	var reload1, reload2 struct{ RevokedAt *time.Time }
	db.Table("tokens").Select("revoked_at").Where("id = ?", t1.ID).Scan(&reload1)
	db.Table("tokens").Select("revoked_at").Where("id = ?", t2.ID).Scan(&reload2)
	assert.NotNil(t, reload1.RevokedAt)
	assert.NotNil(t, reload2.RevokedAt)
}

func TestTokenStore_PersonalTokensFor_EmptyWhenNotConfigured(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)

	rows, err := store.PersonalTokensFor(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestTokenStore_Prune(t *testing.T) {
	db := setupTestDB(t)
	store := NewTokenStore(db)
	ctx := context.Background()

	_, _, _, err := store.Create(ctx, TokenParams{ClientID: "c", AccessTokenLifetime: -time.Hour})
	require.NoError(t, err)
	_, _, _, err = store.Create(ctx, TokenParams{ClientID: "c", AccessTokenLifetime: time.Hour})
	require.NoError(t, err)

	n, err := store.Prune(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
