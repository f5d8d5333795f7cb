package cart

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/redis/redistest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc    Service
	db     *gorm.DB
	guests *GuestStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	require.NoError(t, conn.Create(&[]models.Experience{
		{ID: "pottery", Title: "Pottery workshop", Price: 1800, Location: "Bengaluru", IsActive: true},
		{ID: "sail", Title: "Sunset sail", Price: 4200, Location: "Mumbai", IsActive: true},
	}).Error)

	rdb, _ := redistest.New(t)
	guests := NewGuestStore(rdb, time.Hour)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Guests:  guests,
		Catalog: catalog.NewRepository(conn),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{svc: svc, db: conn, guests: guests}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAddToCartUpsertsOneRowPerExperience(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 1, SelectedDate: day(2026, 11, 2)})
	require.NoError(t, err)
	view, err := fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 3, SelectedDate: day(2026, 12, 24)})
	require.NoError(t, err)

	var rows []models.CartItem
	require.NoError(t, fx.db.Where("user_id = ? AND experience_id = ?", userID, "pottery").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)
	require.NotNil(t, rows[0].SelectedDate)
	assert.True(t, day(2026, 12, 24).Equal(*rows[0].SelectedDate))

	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(5400), view.Total)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, ModeAuthenticated, view.Mode)
}

func TestAddToCartRequiresLoginOrGuestToken(t *testing.T) {
	fx := newFixture(t)
	for _, owner := range []Owner{{}, {GuestToken: "  "}, {UserID: &uuid.Nil}} {
		_, err := fx.svc.AddToCart(context.Background(), owner, AddInput{ExperienceID: "pottery", Quantity: 1})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "%+v", owner)
	}
}

func TestGuestAddThenMergeOnLogin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	guest := Owner{GuestToken: "guest-7"}

	_, err := fx.svc.AddToCart(ctx, guest, AddInput{ExperienceID: "pottery", Quantity: 1})
	require.NoError(t, err)
	view, err := fx.svc.AddToCart(ctx, guest, AddInput{ExperienceID: "sail", Quantity: 2, SelectedDate: day(2026, 10, 20)})
	require.NoError(t, err)
	assert.Equal(t, ModeGuest, view.Mode)
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(1800+8400), view.Total)

	_, err = fx.svc.AddToCart(ctx, guest, AddInput{ExperienceID: "missing", Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var rows int64
	require.NoError(t, fx.db.Model(&models.CartItem{}).Count(&rows).Error)
	assert.Zero(t, rows, "guest adds stay out of the table")

	userID := uuid.New()
	merged, err := fx.svc.MergeGuestCart(ctx, userID, guest.GuestToken)
	require.NoError(t, err)
	assert.Equal(t, ModeAuthenticated, merged.Mode)
	assert.Len(t, merged.Items, 2)
	assert.Equal(t, view.Total, merged.Total)

	lines, err := fx.guests.List(ctx, guest.GuestToken)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAddToCartValidatesInput(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 1, SelectedDate: day(2026, 9, 1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "missing", Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAuthenticatedMutations(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 1})
	require.NoError(t, err)
	_, err = fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "sail", Quantity: 1})
	require.NoError(t, err)

	view, err := fx.svc.UpdateQuantity(ctx, owner, "sail", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1800+8400), view.Total)

	_, err = fx.svc.UpdateQuantity(ctx, owner, "sail", 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	view, err = fx.svc.UpdateDate(ctx, owner, "pottery", day(2026, 10, 20))
	require.NoError(t, err)
	require.NotNil(t, view.Items[0].SelectedDate)

	view, err = fx.svc.RemoveFromCart(ctx, owner, "pottery")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "sail", view.Items[0].ExperienceID)

	_, err = fx.svc.RemoveFromCart(ctx, owner, "pottery")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err = fx.svc.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestGuestMutationsShareTheViewShape(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	owner := Owner{GuestToken: "guest-abc"}

	require.NoError(t, fx.guests.Put(ctx, owner.GuestToken, Line{ExperienceID: "pottery", Quantity: 1}))
	require.NoError(t, fx.guests.Put(ctx, owner.GuestToken, Line{ExperienceID: "retired", Quantity: 2}))

	view, err := fx.svc.View(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, ModeGuest, view.Mode)
	require.Len(t, view.Items, 2)
	assert.Equal(t, int64(1800), view.Total, "unresolved lines contribute zero")
	assert.True(t, view.PricePending)
	assert.True(t, view.Items[1].PricePending)
	assert.Equal(t, catalog.PlaceholderImage, view.Items[1].ImageURL)

	view, err = fx.svc.UpdateQuantity(ctx, owner, "pottery", 4)
	require.NoError(t, err)
	assert.Equal(t, "pottery", view.Items[0].ExperienceID, "update keeps position")
	assert.Equal(t, int64(7200), view.Total)

	view, err = fx.svc.RemoveFromCart(ctx, owner, "retired")
	require.NoError(t, err)
	assert.False(t, view.PricePending)

	_, err = fx.svc.UpdateDate(ctx, owner, "sail", day(2026, 10, 5))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err = fx.svc.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	lines, err := fx.guests.List(ctx, owner.GuestToken)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMergeGuestCartOverwritesConflicts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	owner := Owner{UserID: &userID}

	_, err := fx.svc.AddToCart(ctx, owner, AddInput{ExperienceID: "pottery", Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, fx.guests.Put(ctx, "guest-1", Line{ExperienceID: "pottery", Quantity: 1, SelectedDate: day(2026, 10, 10)}))
	require.NoError(t, fx.guests.Put(ctx, "guest-1", Line{ExperienceID: "sail", Quantity: 2}))

	view, err := fx.svc.MergeGuestCart(ctx, userID, "guest-1")
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	byID := map[string]LineView{}
	for _, item := range view.Items {
		byID[item.ExperienceID] = item
	}
	assert.Equal(t, 1, byID["pottery"].Quantity)
	assert.Equal(t, 2, byID["sail"].Quantity)

	lines, err := fx.guests.List(ctx, "guest-1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
