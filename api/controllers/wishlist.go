package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/wishlist"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

type wishlistAddRequest struct {
	ExperienceID string `json:"experience_id" validate:"required,max=120"`
}

func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		params, err := paginationParams(r)
		if err != nil {
			return err
		}
		page, err := svc.List(r.Context(), userID, params)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, page)
		return nil
	})
}

// WishlistIDs returns just the saved ids, for heart icons on listing cards.
func WishlistIDs(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		ids, err := svc.IDs(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, ids)
		return nil
	})
}

func WishlistAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		var body wishlistAddRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		if err := svc.AddItem(r.Context(), userID, body.ExperienceID); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return signedIn(logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
		if err := svc.RemoveItem(r.Context(), userID, chi.URLParam(r, "experienceId")); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
