package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/middleware"
	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// memberHandler serves a signed-in caller. A returned error is rendered
// as the error envelope; on nil the handler has written the response.
type memberHandler func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error

func signedIn(logg *logger.Logger, h memberHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err == nil {
			err = h(w, r, userID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// cartOwner resolves the cart the request acts on: the signed-in user's when
// authenticated, otherwise the guest token's.
func cartOwner(r *http.Request) cart.Owner {
	owner := cart.Owner{GuestToken: middleware.GuestTokenFromContext(r.Context())}
	if id, err := userIDFromRequest(r); err == nil {
		owner.UserID = &id
	}
	return owner
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
