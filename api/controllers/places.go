package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/giftbox-backend/api/responses"
	"github.com/angelmondragon/giftbox-backend/api/validators"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/maps"
)

// PlacesClient is the geocoding surface behind the city picker.
type PlacesClient interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

type placeSuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

type placeLocation struct {
	PlaceID          string  `json:"place_id"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// PlacesAutocomplete suggests Indian places for the location step.
func PlacesAutocomplete(client PlacesClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "places lookup not configured"))
			return
		}
		input := validators.SanitizeString(r.URL.Query().Get("input"), 120)
		found, err := client.Autocomplete(r.Context(), maps.AutocompleteRequest{
			Input:               input,
			IncludedRegionCodes: []string{maps.RegionIndia},
			LanguageCode:        "en",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]placeSuggestion, len(found))
		for i, s := range found {
			out[i] = placeSuggestion{PlaceID: s.PlaceID, Description: s.Description}
		}
		responses.WriteSuccess(w, out)
	}
}

// PlaceLocation resolves a picked place to coordinates for proximity filtering.
func PlaceLocation(client PlacesClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "places lookup not configured"))
			return
		}
		place, err := client.ResolvePlace(r.Context(), chi.URLParam(r, "placeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, placeLocation{
			PlaceID:          place.PlaceID,
			FormattedAddress: place.FormattedAddress,
			Lat:              place.Location.Latitude,
			Lng:              place.Location.Longitude,
		})
	}
}
