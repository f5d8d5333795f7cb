package bookings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

func seedBookings(t *testing.T, repo *Repository, userID uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		booking := &models.Booking{
			UserID:           userID,
			PaymentID:        uuid.New(),
			GatewayPaymentID: fmt.Sprintf("pay_%d", i),
			Status:           enums.BookingStatusConfirmed,
			TotalAmount:      int64(1000 * (i + 1)),
			Currency:         enums.CurrencyINR,
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
			Items: []models.BookingItem{
				{ExperienceID: "pottery", Title: "Pottery workshop", Quantity: 2, UnitPrice: 500 * int64(i+1)},
			},
		}
		require.NoError(t, repo.Create(context.Background(), booking))
		ids = append(ids, booking.ID)
	}
	return ids
}

func TestListPagesNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)

	userID := uuid.New()
	ids := seedBookings(t, repo, userID, 3)

	ctx := context.Background()
	first, err := svc.List(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[2], first.Items[0].ID)
	assert.Equal(t, ids[1], first.Items[1].ID)
	assert.NotEmpty(t, first.Cursor)

	second, err := svc.List(ctx, userID, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID)
	assert.Empty(t, second.Cursor)

	item := second.Items[0].Items[0]
	assert.Equal(t, int64(1000), item.LineTotal)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), uuid.Nil, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetIsScopedToOwner(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)

	owner := uuid.New()
	ids := seedBookings(t, repo, owner, 1)

	detail, err := svc.Get(context.Background(), owner, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "pay_0", detail.GatewayPaymentID)
	require.Len(t, detail.Items, 1)

	_, err = svc.Get(context.Background(), uuid.New(), ids[0])
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
