package payments

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/razorpay"
)

const testSecret = "s3cr3t"

var fixedNow = time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

type stubGateway struct {
	requests []razorpay.OrderRequest
	err      error
}

func (g *stubGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &razorpay.Order{ID: "order_1", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

type stubCart struct {
	view cart.View
}

func (c stubCart) View(context.Context, cart.Owner) (cart.View, error) {
	return c.view, nil
}

type failingOutbox struct{}

func (failingOutbox) EmitIfNotExists(context.Context, *gorm.DB, outbox.DomainEvent) error {
	return errors.New("disk full")
}

type fixture struct {
	svc     Service
	db      *gorm.DB
	gateway *stubGateway
}

func newFixture(t *testing.T, view cart.View, pub outboxPublisher) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if pub == nil {
		pub = outbox.NewService(outbox.NewRepository(conn), logg)
	}
	gw := &stubGateway{}
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		TX:      db.Wrap(conn),
		Gateway: gw,
		Cart:    stubCart{view: view},
		Outbox:  pub,
		Secret:  testSecret,
		Logger:  logg,
		Clock:   func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return fixture{svc: svc, db: conn, gateway: gw}
}

func pricedCart() cart.View {
	return cart.View{
		Mode: cart.ModeAuthenticated,
		Items: []cart.LineView{
			{ExperienceID: "pottery", Title: "Pottery workshop", Quantity: 2, UnitPrice: 1800, LineTotal: 3600},
			{ExperienceID: "sail", Title: "Sunset sail", Quantity: 1, UnitPrice: 4200, LineTotal: 4200},
		},
		ItemCount: 3,
		Total:     7800,
	}
}

func TestCreateOrderConvertsToPaiseAndRecordsSnapshot(t *testing.T) {
	fx := newFixture(t, pricedCart(), nil)
	userID := uuid.New()

	res, err := fx.svc.CreateOrder(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", res.OrderID)
	assert.Equal(t, int64(780000), res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "rzp_test_key", res.KeyID)
	assert.LessOrEqual(t, len(res.Receipt), 40)

	require.Len(t, fx.gateway.requests, 1)
	assert.Equal(t, int64(780000), fx.gateway.requests[0].Amount)

	var payment models.Payment
	require.NoError(t, fx.db.Where("order_id = ?", "order_1").First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCreated, payment.Status)
	assert.Equal(t, userID, payment.UserID)
	items, err := DecodeItems(&payment)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3600), items[0].LineTotal())
}

func TestCreateOrderRejectsEmptyAndPendingCarts(t *testing.T) {
	fx := newFixture(t, cart.View{}, nil)
	_, err := fx.svc.CreateOrder(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	pending := pricedCart()
	pending.PricePending = true
	pending.Items[1].PricePending = true
	fx = newFixture(t, pending, nil)
	_, err = fx.svc.CreateOrder(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]any{"experience_ids": []string{"sail"}}, pkgerrors.As(err).Details())
	assert.Empty(t, fx.gateway.requests)

	_, err = fx.svc.CreateOrder(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	fx := newFixture(t, pricedCart(), nil)
	userID := uuid.New()
	_, err := fx.svc.CreateOrder(context.Background(), userID)
	require.NoError(t, err)

	sig := []byte(razorpay.Sign(testSecret, "order_1", "pay_1"))
	sig[5] ^= 1
	_, err = fx.svc.Verify(context.Background(), userID, VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: string(sig)})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePaymentRejected))

	var payment models.Payment
	require.NoError(t, fx.db.Where("order_id = ?", "order_1").First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCreated, payment.Status, "a rejected callback never touches the record")
}

func TestVerifyRecordsPaymentAndQueuesEventOnce(t *testing.T) {
	fx := newFixture(t, pricedCart(), nil)
	userID := uuid.New()
	_, err := fx.svc.CreateOrder(context.Background(), userID)
	require.NoError(t, err)

	input := VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: razorpay.Sign(testSecret, "order_1", "pay_1")}
	res, err := fx.svc.Verify(context.Background(), userID, input)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "pay_1", res.PaymentID)
	require.NotNil(t, res.VerifiedAt)
	assert.True(t, fixedNow.Equal(*res.VerifiedAt))

	again, err := fx.svc.Verify(context.Background(), userID, input)
	require.NoError(t, err, "replaying the same callback is idempotent")
	assert.Equal(t, res.PaymentID, again.PaymentID)

	var events []models.OutboxEvent
	require.NoError(t, fx.db.Where("event_type = ?", enums.EventPaymentVerified).Find(&events).Error)
	assert.Len(t, events, 1)

	other := VerifyInput{OrderID: "order_1", PaymentID: "pay_2", Signature: razorpay.Sign(testSecret, "order_1", "pay_2")}
	_, err = fx.svc.Verify(context.Background(), userID, other)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestVerifyChecksOwnershipAndExistence(t *testing.T) {
	fx := newFixture(t, pricedCart(), nil)
	owner := uuid.New()
	_, err := fx.svc.CreateOrder(context.Background(), owner)
	require.NoError(t, err)

	input := VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: razorpay.Sign(testSecret, "order_1", "pay_1")}
	_, err = fx.svc.Verify(context.Background(), uuid.New(), input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	missing := VerifyInput{OrderID: "order_x", PaymentID: "pay_1", Signature: razorpay.Sign(testSecret, "order_x", "pay_1")}
	_, err = fx.svc.Verify(context.Background(), owner, missing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestVerifyWriteFailureIsInternalAndRollsBack(t *testing.T) {
	fx := newFixture(t, pricedCart(), failingOutbox{})
	userID := uuid.New()
	_, err := fx.svc.CreateOrder(context.Background(), userID)
	require.NoError(t, err)

	input := VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: razorpay.Sign(testSecret, "order_1", "pay_1")}
	_, err = fx.svc.Verify(context.Background(), userID, input)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	var payment models.Payment
	require.NoError(t, fx.db.Where("order_id = ?", "order_1").First(&payment).Error)
	assert.Equal(t, enums.PaymentStatusCreated, payment.Status)
}

func TestMoneyHelpers(t *testing.T) {
	assert.Equal(t, int64(149900), ToPaise(1499))
	assert.Equal(t, "₹1499.00", FormatINR(149900))
	assert.Equal(t, "₹0.50", FormatINR(50))
}
