package payments

import (
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	"github.com/angelmondragon/giftbox-backend/pkg/types"
)

// OrderResult is what the checkout widget needs to open the gateway.
type OrderResult struct {
	OrderID  string              `json:"order_id"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Receipt  string              `json:"receipt"`
	KeyID    string              `json:"key_id"`
	Total    int64               `json:"total"`
	Items    []types.PaymentItem `json:"items"`
}

// VerifyInput is the widget callback, field names as the gateway sends them.
type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// VerifyResult reports a recorded verification.
type VerifyResult struct {
	Verified   bool                `json:"verified"`
	OrderID    string              `json:"order_id"`
	PaymentID  string              `json:"payment_id"`
	Status     enums.PaymentStatus `json:"status"`
	Amount     int64               `json:"amount"`
	VerifiedAt *time.Time          `json:"verified_at,omitempty"`
}
