// Package maps is a thin client for the Google Places (New) API: address
// autocomplete, place resolution and text-search geocoding.
package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	defaultTimeout = 10 * time.Second
	errorBodyLimit = 1024

	autocompleteFieldMask = "suggestions.placePrediction.placeId,suggestions.placePrediction.text"
	placeResolveFieldMask = "id,formattedAddress,location,addressComponents"
	textSearchFieldMask   = "places.id,places.formattedAddress,places.location"
)

// RegionIndia restricts lookups to Indian places.
const RegionIndia = "IN"

var errAPIKeyRequired = errors.New("google maps api key is required")

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	c := &Client{
		apiKey:     key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type AutocompleteRequest struct {
	Input               string   `json:"input"`
	IncludedRegionCodes []string `json:"includedRegionCodes,omitempty"`
	LanguageCode        string   `json:"languageCode,omitempty"`
}

type AutocompleteSuggestion struct {
	PlaceID     string
	Description string
}

// PlaceDetails is the normalized place shape shared by every lookup.
// AddressComponents is only filled by ResolvePlace.
type PlaceDetails struct {
	PlaceID           string
	FormattedAddress  string
	Location          LatLng
	AddressComponents []AddressComponent
}

type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type AddressComponent struct {
	LongName  string   `json:"longText"`
	ShortName string   `json:"shortText"`
	Types     []string `json:"types"`
}

// wirePlace is a Place resource as the API returns it.
type wirePlace struct {
	ID                string             `json:"id"`
	FormattedAddress  string             `json:"formattedAddress"`
	Location          LatLng             `json:"location"`
	AddressComponents []AddressComponent `json:"addressComponents"`
}

func (p wirePlace) details() *PlaceDetails {
	return &PlaceDetails{
		PlaceID:           p.ID,
		FormattedAddress:  p.FormattedAddress,
		Location:          p.Location,
		AddressComponents: p.AddressComponents,
	}
}

// Autocomplete returns place predictions for partial input.
func (c *Client) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]AutocompleteSuggestion, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "autocomplete input is required")
	}
	var out struct {
		Suggestions []struct {
			Prediction struct {
				PlaceID string `json:"placeId"`
				Text    struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"placePrediction"`
		} `json:"suggestions"`
	}
	if err := c.call(ctx, http.MethodPost, "places:autocomplete", autocompleteFieldMask, req, &out); err != nil {
		return nil, err
	}

	suggestions := make([]AutocompleteSuggestion, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		suggestions = append(suggestions, AutocompleteSuggestion{PlaceID: s.Prediction.PlaceID, Description: s.Prediction.Text.Text})
	}
	return suggestions, nil
}

// ResolvePlace fetches the canonical record for placeID.
func (c *Client) ResolvePlace(ctx context.Context, placeID string) (*PlaceDetails, error) {
	id := strings.TrimSpace(placeID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "place ID is required")
	}
	var out wirePlace
	if err := c.call(ctx, http.MethodGet, "places/"+url.PathEscape(id), placeResolveFieldMask, nil, &out); err != nil {
		return nil, err
	}
	return out.details(), nil
}

// Geocode runs a text search and returns the best match, or nil when the
// query matched nothing.
func (c *Client) Geocode(ctx context.Context, query, regionCode string) (*PlaceDetails, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "geocode query is required")
	}
	body := map[string]any{"textQuery": query, "regionCode": regionCode, "maxResultCount": 1}
	var out struct {
		Places []wirePlace `json:"places"`
	}
	if err := c.call(ctx, http.MethodPost, "places:searchText", textSearchFieldMask, body, &out); err != nil {
		return nil, err
	}
	if len(out.Places) == 0 {
		return nil, nil
	}
	return out.Places[0].details(), nil
}

// call sends one Places request and decodes a 200 body into out. Every
// transport or upstream failure is a CodeDependency error.
func (c *Client) call(ctx context.Context, method, path, fieldMask string, in, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encode places request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build places request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "places request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		cause := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "places request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode places response")
	}
	return nil
}
