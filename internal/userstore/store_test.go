package userstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	u := &User{ID: "u1", Email: "inspector@example.com", DisplayName: "Inspector", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, u))

	got, err := store.GetUserByEmail(ctx, "inspector@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SessionExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer store.Close()

	u := &User{ID: "u1", Email: "a@b.com", DisplayName: "A", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, store.CreateUser(ctx, u))

	now := time.Now()
	sess := &Session{SessionID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.CreateSession(ctx, sess))

	got, err := store.GetSession(ctx, "s1", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	_, err = store.GetSession(ctx, "s1", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.GetSession(ctx, "s1", now)
	assert.ErrorIs(t, err, ErrNotFound)
}
