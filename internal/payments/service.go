package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/internal/cart"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftbox-backend/pkg/razorpay"
	"github.com/angelmondragon/giftbox-backend/pkg/types"
)

var paisePerRupee = decimal.NewFromInt(100)

type orderGateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	KeyID() string
}

type cartViewer interface {
	View(ctx context.Context, owner cart.Owner) (cart.View, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Repo     *Repository
	TX       txRunner
	Gateway  orderGateway
	Cart     cartViewer
	Outbox   outboxPublisher
	Secret   string
	Currency enums.Currency
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service creates gateway orders and records verified payments.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID) (OrderResult, error)
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (VerifyResult, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	gateway  orderGateway
	cart     cartViewer
	outbox   outboxPublisher
	secret   string
	currency enums.Currency
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payments repo is required")
	}
	if params.TX == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart service is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox publisher is required")
	}
	if strings.TrimSpace(params.Secret) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway secret is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	currency := params.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TX,
		gateway:  params.Gateway,
		cart:     params.Cart,
		outbox:   params.Outbox,
		secret:   params.Secret,
		currency: currency,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

// CreateOrder prices the user's cart, opens a gateway order for it and records
// the order with a snapshot of the lines.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID) (OrderResult, error) {
	if userID == uuid.Nil {
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	view, err := s.cart.View(ctx, cart.Owner{UserID: &userID})
	if err != nil {
		return OrderResult{}, err
	}
	if len(view.Items) == 0 {
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if view.PricePending {
		pending := make([]string, 0)
		for _, line := range view.Items {
			if line.PricePending {
				pending = append(pending, line.ExperienceID)
			}
		}
		return OrderResult{}, pkgerrors.New(pkgerrors.CodeValidation, "some cart items have no price yet").
			WithDetails(map[string]any{"experience_ids": pending})
	}

	items := snapshot(view)
	amount := ToPaise(view.Total)
	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: string(s.currency),
		Receipt:  receipt,
		Notes:    map[string]string{"user_id": userID.String()},
	})
	if err != nil {
		return OrderResult{}, err
	}

	rawItems, err := json.Marshal(items)
	if err != nil {
		return OrderResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment items")
	}
	payment := &models.Payment{
		UserID:   userID,
		OrderID:  order.ID,
		Status:   enums.PaymentStatusCreated,
		Amount:   amount,
		Currency: s.currency,
		Receipt:  receipt,
		Items:    rawItems,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return OrderResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record gateway order")
	}

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{
		"order_id": order.ID,
		"amount":   amount,
	})
	s.logg.Info(logCtx, "payments.order_created")

	return OrderResult{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: string(s.currency),
		Receipt:  receipt,
		KeyID:    s.gateway.KeyID(),
		Total:    view.Total,
		Items:    items,
	}, nil
}

// Verify checks the widget callback signature and, when it matches, records
// the payment as verified and queues payment_verified in the same transaction.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (VerifyResult, error) {
	input.OrderID = strings.TrimSpace(input.OrderID)
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	if input.OrderID == "" || input.PaymentID == "" || strings.TrimSpace(input.Signature) == "" {
		return VerifyResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}
	if !razorpay.VerifyPaymentSignature(s.secret, input.OrderID, input.PaymentID, input.Signature) {
		s.logg.Warn(s.logg.WithField(ctx, "order_id", input.OrderID), "payments.signature_rejected")
		return VerifyResult{}, pkgerrors.New(pkgerrors.CodePaymentRejected, "payment signature mismatch")
	}

	var result VerifyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByOrderID(ctx, input.OrderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if userID != uuid.Nil && payment.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}

		if payment.Status == enums.PaymentStatusVerified {
			if payment.GatewayPaymentID != nil && *payment.GatewayPaymentID == input.PaymentID {
				result = toVerifyResult(payment)
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already verified with a different payment")
		}

		at := s.now().UTC()
		changed, err := repo.MarkVerified(ctx, payment.ID, input.PaymentID, at)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}
		payment.Status = enums.PaymentStatusVerified
		payment.GatewayPaymentID = &input.PaymentID
		payment.VerifiedAt = &at

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentVerified,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.Actor{UserID: payment.UserID, Source: "verify"},
			OccurredAt:    at,
			Data: payloads.PaymentVerifiedEvent{
				PaymentID:        payment.ID,
				UserID:           payment.UserID,
				OrderID:          payment.OrderID,
				GatewayPaymentID: input.PaymentID,
				Amount:           payment.Amount,
				Currency:         string(payment.Currency),
				VerifiedAt:       at,
			},
		}); err != nil {
			return err
		}
		result = toVerifyResult(payment)
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return VerifyResult{}, err
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   input.OrderID,
			"payment_id": input.PaymentID,
		})
		s.logg.Error(logCtx, "payments.verified_not_recorded", err)
		return VerifyResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment verified but could not be recorded")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.OrderID,
		"payment_id": result.PaymentID,
	})
	s.logg.Info(logCtx, "payments.verified")
	return result, nil
}

// ToPaise converts whole rupees to the gateway's smallest unit.
func ToPaise(rupees int64) int64 {
	return decimal.NewFromInt(rupees).Mul(paisePerRupee).IntPart()
}

// FormatINR renders paise as a rupee amount with two decimals.
func FormatINR(paise int64) string {
	return "₹" + decimal.New(paise, -2).StringFixed(2)
}

// DecodeItems reads the line snapshot stored on a payment.
func DecodeItems(payment *models.Payment) ([]types.PaymentItem, error) {
	if payment == nil || len(payment.Items) == 0 {
		return nil, nil
	}
	var items []types.PaymentItem
	if err := json.Unmarshal(payment.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func snapshot(view cart.View) []types.PaymentItem {
	items := make([]types.PaymentItem, 0, len(view.Items))
	for _, line := range view.Items {
		items = append(items, types.PaymentItem{
			ExperienceID: line.ExperienceID,
			Title:        line.Title,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			SelectedDate: line.SelectedDate,
		})
	}
	return items
}

func toVerifyResult(payment *models.Payment) VerifyResult {
	out := VerifyResult{
		Verified:   payment.Status == enums.PaymentStatusVerified,
		OrderID:    payment.OrderID,
		Status:     payment.Status,
		Amount:     payment.Amount,
		VerifiedAt: payment.VerifiedAt,
	}
	if payment.GatewayPaymentID != nil {
		out.PaymentID = *payment.GatewayPaymentID
	}
	return out
}
