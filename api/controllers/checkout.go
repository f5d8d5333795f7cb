package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentID string `json:"payment_id" validate:"required,max=64"`
}

// Checkout turns a verified payment and the caller's cart into a booking.
// A replay for the same payment answers 200 with the existing booking.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		result, err := svc.Checkout(r.Context(), userID, body.PaymentID)
		if err != nil {
			return err
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
		return nil
	})
}
