package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

type addCartItemRequest struct {
	ExperienceID string  `json:"experience_id" validate:"required,max=120"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	SelectedDate *string `json:"selected_date,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type updateDateRequest struct {
	SelectedDate *string `json:"selected_date"`
}

// CartView renders the caller's cart, guest or authenticated.
func CartView(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.View(r.Context(), cartOwner(r))
		writeCart(w, r, logg, view, err)
	}
}

func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := parseDate(body.SelectedDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.AddToCart(r.Context(), cartOwner(r), cart.AddInput{
			ExperienceID: body.ExperienceID,
			Quantity:     body.Quantity,
			SelectedDate: date,
		})
		writeCart(w, r, logg, view, err)
	}
}

func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.RemoveFromCart(r.Context(), cartOwner(r), chi.URLParam(r, "experienceId"))
		writeCart(w, r, logg, view, err)
	}
}

func CartUpdateQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateQuantity(r.Context(), cartOwner(r), chi.URLParam(r, "experienceId"), body.Quantity)
		writeCart(w, r, logg, view, err)
	}
}

func CartUpdateDate(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateDateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := parseDate(body.SelectedDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.UpdateDate(r.Context(), cartOwner(r), chi.URLParam(r, "experienceId"), date)
		writeCart(w, r, logg, view, err)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.Clear(r.Context(), cartOwner(r))
		writeCart(w, r, logg, view, err)
	}
}

func writeCart(w http.ResponseWriter, r *http.Request, logg *logger.Logger, view cart.View, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "selected_date must be YYYY-MM-DD").
			WithDetails(map[string]any{"field": "selected_date"})
	}
	return &t, nil
}
