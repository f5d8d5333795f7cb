// Package checkout turns a verified payment into a booking. It is the second
// phase after payments.Verify and is keyed by the gateway payment id, so a
// retry or a reconciler replay resolves to the same booking.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftbox-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Experience, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	TX       txRunner
	Payments *payments.Repository
	Bookings *bookings.Repository
	Carts    *cart.Repository
	Catalog  catalogReader
	Outbox   outboxPublisher
	Logger   *logger.Logger
}

// Result is the checkout outcome. Replayed is set when the booking already
// existed for the payment.
type Result struct {
	Success  bool            `json:"success"`
	Replayed bool            `json:"replayed"`
	Booking  bookings.Detail `json:"booking"`
}

// Service completes checkout for verified payments.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID, gatewayPaymentID string) (*Result, error)
	CompleteVerified(ctx context.Context, event payloads.PaymentVerifiedEvent) (*Result, error)
}

type service struct {
	tx       txRunner
	payments *payments.Repository
	bookings *bookings.Repository
	carts    *cart.Repository
	catalog  catalogReader
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds the checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TX == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payments repo is required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bookings repo is required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repo is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog reader is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		tx:       params.TX,
		payments: params.Payments,
		bookings: params.Bookings,
		carts:    params.Carts,
		catalog:  params.Catalog,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// Checkout requires a verified payment owned by the user. In one transaction
// it creates the booking and its items, clears the cart and queues
// booking_created.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, gatewayPaymentID string) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	gatewayPaymentID = strings.TrimSpace(gatewayPaymentID)
	if gatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	ctx = s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{"payment_id": gatewayPaymentID})

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.WithTx(tx).FindByGatewayPaymentID(ctx, gatewayPaymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user")
		}
		if payment.Status != enums.PaymentStatusVerified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not verified")
		}

		existing, err := s.bookings.WithTx(tx).FindByGatewayPaymentID(ctx, gatewayPaymentID)
		if err == nil {
			result = &Result{Success: true, Replayed: true, Booking: bookings.ToDetail(existing)}
			return nil
		}
		if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}

		items, err := s.bookingItems(ctx, tx, payment)
		if err != nil {
			return err
		}
		booking := &models.Booking{
			UserID:           userID,
			PaymentID:        payment.ID,
			GatewayPaymentID: gatewayPaymentID,
			Status:           enums.BookingStatusConfirmed,
			Currency:         payment.Currency,
			Items:            items,
		}
		for _, it := range items {
			booking.TotalAmount += it.UnitPrice * int64(it.Quantity)
		}
		if err := s.bookings.WithTx(tx).Create(ctx, booking); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "booking already recorded for payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create booking")
		}
		if err := s.carts.WithTx(tx).ClearByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.Actor{UserID: userID, Source: "checkout"},
			Data: payloads.BookingCreatedEvent{
				BookingID:        booking.ID,
				UserID:           userID,
				GatewayPaymentID: gatewayPaymentID,
				ItemCount:        len(items),
				TotalAmount:      booking.TotalAmount,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue booking event")
		}
		result = &Result{Success: true, Booking: bookings.ToDetail(booking)}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
			s.logg.Error(ctx, "checkout.failed", err)
		}
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id": result.Booking.ID.String(),
		"replayed":   result.Replayed,
	})
	s.logg.Info(logCtx, "checkout.completed")
	return result, nil
}

// CompleteVerified finishes checkout for a payment_verified event.
func (s *service) CompleteVerified(ctx context.Context, event payloads.PaymentVerifiedEvent) (*Result, error) {
	if event.UserID == uuid.Nil || event.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment event is missing user or payment id")
	}
	return s.Checkout(ctx, event.UserID, event.GatewayPaymentID)
}

// bookingItems prefers the snapshot taken when the order was created and
// falls back to the live cart priced from the catalog.
func (s *service) bookingItems(ctx context.Context, tx *gorm.DB, payment *models.Payment) ([]models.BookingItem, error) {
	snapshot, err := payments.DecodeItems(payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode payment items")
	}
	if len(snapshot) == 0 {
		snapshot, err = s.cartItems(ctx, tx, payment.UserID)
		if err != nil {
			return nil, err
		}
	}
	if len(snapshot) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	now := time.Now().UTC()
	items := make([]models.BookingItem, 0, len(snapshot))
	for _, line := range snapshot {
		items = append(items, models.BookingItem{
			ExperienceID: line.ExperienceID,
			Title:        line.Title,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			SelectedDate: line.SelectedDate,
			CreatedAt:    now,
		})
	}
	return items, nil
}

func (s *service) cartItems(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.PaymentItem, error) {
	rows, err := s.carts.WithTx(tx).ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ExperienceID)
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load experiences")
	}
	out := make([]types.PaymentItem, 0, len(rows))
	for _, row := range rows {
		exp, ok := found[row.ExperienceID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "experience is no longer available").
				WithDetails(map[string]any{"experience_id": row.ExperienceID})
		}
		item := catalog.FromModel(exp)
		out = append(out, types.PaymentItem{
			ExperienceID: row.ExperienceID,
			Title:        item.Title,
			Quantity:     row.Quantity,
			UnitPrice:    item.Price,
			SelectedDate: row.SelectedDate,
		})
	}
	return out, nil
}
