package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	"github.com/angelmondragon/giftbox-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

// ExperienceList browses the catalog. lat/lng switch on proximity ranking;
// city is a text fallback when no coordinates are known.
func ExperienceList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ExperienceGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.Get(r.Context(), chi.URLParam(r, "experienceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func parseListFilters(r *http.Request) (catalog.ListFilters, error) {
	q := r.URL.Query()
	filters := catalog.ListFilters{
		Category: validators.SanitizeString(q.Get("category"), 60),
		Query:    validators.SanitizeString(q.Get("q"), 120),
		City:     validators.SanitizeString(q.Get("city"), 120),
	}

	var err error
	if filters.MinPrice, err = validators.ParseQueryInt64(r, "min_price"); err != nil {
		return filters, err
	}
	if filters.MaxPrice, err = validators.ParseQueryInt64(r, "max_price"); err != nil {
		return filters, err
	}
	if filters.Limit, err = validators.ParseQueryInt(r, "limit", 20, 1, 100); err != nil {
		return filters, err
	}
	if filters.Offset, err = validators.ParseQueryInt(r, "offset", 0, 0, 10000); err != nil {
		return filters, err
	}

	lat, err := validators.ParseQueryFloat(r, "lat")
	if err != nil {
		return filters, err
	}
	lng, err := validators.ParseQueryFloat(r, "lng")
	if err != nil {
		return filters, err
	}
	switch {
	case lat != nil && lng != nil:
		filters.Near = &geo.Point{Lat: *lat, Lng: *lng}
	case lat != nil || lng != nil:
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be supplied together")
	}
	radius, err := validators.ParseQueryFloat(r, "radius_km")
	if err != nil {
		return filters, err
	}
	if radius != nil {
		filters.RadiusKM = *radius
	}
	if strings.TrimSpace(filters.City) != "" && filters.Near != nil {
		filters.City = ""
	}
	return filters, nil
}
