package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
)

func TestInsertNormalizesAndRejectsDuplicates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Insert(ctx, NewUser{Email: "  Asha@Example.com ", PasswordHash: "h", FullName: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.True(t, user.IsActive)

	_, err = repo.Insert(ctx, NewUser{Email: "asha@example.com", PasswordHash: "h", FullName: "Other"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := repo.ByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestRecordLogin(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	user, err := repo.Insert(ctx, NewUser{Email: "a@b.co", PasswordHash: "h", FullName: "A"})
	require.NoError(t, err)

	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, user.ID, at))

	got, err := repo.ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))

	err = repo.RecordLogin(ctx, uuid.New(), at)
	assert.True(t, db.IsNotFound(err))
}

func TestProfileOfOmitsNil(t *testing.T) {
	assert.Nil(t, ProfileOf(nil))
}
