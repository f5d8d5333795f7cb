package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/bookings"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

func BookingsList(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		params, err := paginationParams(r)
		if err != nil {
			return err
		}
		result, err := svc.List(r.Context(), userID, params)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, result)
		return nil
	})
}

func BookingGet(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		bookingID, err := parseUUID(chi.URLParam(r, "bookingId"), "booking_id")
		if err != nil {
			return err
		}
		detail, err := svc.Get(r.Context(), userID, bookingID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, detail)
		return nil
	})
}

// paginationParams reads ?limit and ?cursor; the cursor is validated by the service.
func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}
