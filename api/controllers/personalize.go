package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/personalize"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// WizardStart opens a personalization run.
func WizardStart(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Start(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sess)
	}
}

func WizardGet(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		sess, err := svc.Get(r.Context(), id)
		writeSession(w, r, logg, sess, err)
	})
}

func WizardBasics(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var body personalize.BasicsInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.SubmitBasics(r.Context(), id, body)
		writeSession(w, r, logg, sess, err)
	})
}

func WizardInterests(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var body personalize.InterestsInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.SubmitInterests(r.Context(), id, body)
		writeSession(w, r, logg, sess, err)
	})
}

func WizardPreferences(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var body personalize.PreferencesInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.SubmitPreferences(r.Context(), id, body)
		writeSession(w, r, logg, sess, err)
	})
}

// WizardBack always answers with the session; a failed remote rewind is
// reported in the warning field.
func WizardBack(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		result, err := svc.Back(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	})
}

func WizardFollowup(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var body personalize.FollowupInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := svc.Followup(r.Context(), id, body)
		writeSession(w, r, logg, sess, err)
	})
}

func WizardStartOver(svc personalize.Service, logg *logger.Logger) http.HandlerFunc {
	return withWizard(logg, func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		sess, err := svc.StartOver(r.Context(), id)
		writeSession(w, r, logg, sess, err)
	})
}

func withWizard(logg *logger.Logger, fn func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUID(chi.URLParam(r, "wizardId"), "wizard_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithWizardID(ctx, id.String())
		}
		fn(w, r.WithContext(ctx), id)
	}
}

func writeSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger, sess *personalize.Session, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, sess)
}
