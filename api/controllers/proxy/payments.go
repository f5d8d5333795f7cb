package proxy

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/razorpay"
)

const defaultCurrency = "INR"

// OrderCreator opens an order on the payment gateway.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
}

type orderRequest struct {
	Amount   int64             `json:"amount" validate:"required,gt=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3"`
	Receipt  string            `json:"receipt" validate:"omitempty,max=40"`
	Notes    map[string]string `json:"notes"`
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type verifyResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// PaymentOrder creates a gateway order from a raw amount in paise. It does
// not touch the database.
func PaymentOrder(gateway OrderCreator, m *metrics.ProxyMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		defer func() { m.ObserveRequest("payments", "order", sw.status) }()

		switch r.Method {
		case http.MethodOptions:
			sw.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			methodNotAllowed(sw, http.MethodPost)
			return
		}

		var body orderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteProxyError(r.Context(), logg, sw, err)
			return
		}
		currency := strings.ToUpper(strings.TrimSpace(body.Currency))
		if currency == "" {
			currency = defaultCurrency
		}

		order, err := gateway.CreateOrder(r.Context(), razorpay.OrderRequest{
			Amount:   body.Amount,
			Currency: currency,
			Receipt:  body.Receipt,
			Notes:    body.Notes,
		})
		if err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not create order").
					WithDetails(responses.UpstreamStatus{Status: http.StatusInternalServerError})
			}
			responses.WriteProxyError(r.Context(), logg, sw, err)
			return
		}
		responses.WriteJSON(sw, http.StatusOK, order)
	}
}

// PaymentVerify checks a checkout signature against the key secret. A mismatch
// is answered with 400 and is never retried.
func PaymentVerify(secret string, m *metrics.ProxyMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		defer func() { m.ObserveRequest("payments", "verify", sw.status) }()

		switch r.Method {
		case http.MethodOptions:
			sw.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			methodNotAllowed(sw, http.MethodPost)
			return
		}

		if strings.TrimSpace(secret) == "" {
			responses.WriteProxyError(r.Context(), logg, sw, pkgerrors.New(pkgerrors.CodeInternal, "payment secret not configured"))
			return
		}

		var body verifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteProxyError(r.Context(), logg, sw, err)
			return
		}
		if !razorpay.VerifyPaymentSignature(secret, body.OrderID, body.PaymentID, body.Signature) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"razorpay_order_id":   body.OrderID,
				"razorpay_payment_id": body.PaymentID,
			})
			responses.WriteProxyError(ctx, logg, sw, pkgerrors.New(pkgerrors.CodePaymentRejected, "invalid payment signature"))
			return
		}
		responses.WriteJSON(sw, http.StatusOK, verifyResponse{
			Success:   true,
			OrderID:   body.OrderID,
			PaymentID: body.PaymentID,
		})
	}
}
