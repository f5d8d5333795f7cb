package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/redis/redistest"
)

var testJWT = config.JWTConfig{ExpirationMinutes: 15, RefreshTokenDays: 1}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	client, _ := redistest.New(t)
	m, err := NewManager(client, testJWT)
	require.NoError(t, err)
	return m
}

func TestGenerateStoresDigestNotToken(t *testing.T) {
	client, mr := redistest.New(t)
	m, err := NewManager(client, testJWT)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := m.Generate(context.Background(), "jti-1", userID)
	require.NoError(t, err)

	key := client.AccessSessionKey("jti-1")
	assert.Equal(t, userID.String(), mr.HGet(key, fieldUser))
	assert.Equal(t, digest(token), mr.HGet(key, fieldDigest))
	assert.NotContains(t, mr.HGet(key, fieldDigest), token)
	assert.Equal(t, 24*time.Hour, mr.TTL(key))
}

func TestRotateIsSingleUse(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	userID := uuid.New()

	token, err := m.Generate(ctx, "jti-1", userID)
	require.NoError(t, err)

	_, _, err = m.Rotate(ctx, "jti-1", userID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, _, err = m.Rotate(ctx, "jti-1", uuid.New(), token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "refresh is bound to its user")

	newID, newToken, err := m.Rotate(ctx, "jti-1", userID, token)
	require.NoError(t, err)
	assert.NotEqual(t, token, newToken)

	ok, err := m.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = m.HasSession(ctx, newID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = m.Rotate(ctx, "jti-1", userID, token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.Generate(ctx, "jti-2", uuid.New())
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, "jti-2"))
	ok, err := m.HasSession(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, m.Revoke(ctx, " "))
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	client, _ := redistest.New(t)
	_, err := NewManager(client, config.JWTConfig{ExpirationMinutes: 48 * 60, RefreshTokenDays: 1})
	assert.Error(t, err)
	_, err = NewManager(nil, testJWT)
	assert.Error(t, err)
}
