package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// PaymentsCreateOrder opens a gateway order for the caller's cart total.
func PaymentsCreateOrder(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		order, err := svc.CreateOrder(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
		return nil
	})
}

// PaymentsVerify checks the gateway signature and records the payment.
func PaymentsVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		var body payments.VerifyInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		result, err := svc.Verify(r.Context(), userID, body)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, result)
		return nil
	})
}
