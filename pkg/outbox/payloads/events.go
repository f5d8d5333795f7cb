package payloads

import (
	"time"

	"github.com/google/uuid"
)

// PaymentVerifiedEvent is queued when a checkout callback signature checks out.
type PaymentVerifiedEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	UserID           uuid.UUID `json:"user_id"`
	OrderID          string    `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	VerifiedAt       time.Time `json:"verified_at"`
}

// BookingCreatedEvent is queued when a verified payment becomes a booking.
type BookingCreatedEvent struct {
	BookingID        uuid.UUID `json:"booking_id"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	ItemCount        int       `json:"item_count"`
	TotalAmount      int64     `json:"total_amount"`
}
