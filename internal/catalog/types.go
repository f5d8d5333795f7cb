package catalog

import (
	"github.com/angelmondragon/giftbox-backend/pkg/geo"
)

// Display defaults applied when a listing omits a field.
const (
	DefaultTitle        = "Untitled experience"
	DefaultLocation     = "Location TBA"
	DefaultDuration     = "Flexible"
	DefaultParticipants = "1+"
	DefaultDate         = "Anytime"
	PlaceholderImage    = "/images/experience-placeholder.jpg"
)

// Source marks where a display item came from.
type Source string

const (
	SourceCatalog    Source = "catalog"
	SourceSuggestion Source = "suggestion"
)

// Item is a display-ready experience. Every field a card renders is populated.
type Item struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category,omitempty"`
	Price        int64    `json:"price"`
	PricePending bool     `json:"price_pending,omitempty"`
	ImageURLs    []string `json:"imageUrl"`
	Location     string   `json:"location"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Duration     string   `json:"duration"`
	Participants string   `json:"participants"`
	Date         string   `json:"date"`
	Source       Source   `json:"source"`
	DistanceKM   *float64 `json:"distance_km,omitempty"`
}

// Point returns the item's coordinates when both are present.
func (i Item) Point() (geo.Point, bool) {
	if i.Latitude == nil || i.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *i.Latitude, Lng: *i.Longitude}, true
}

// ListFilters narrows the browse endpoint.
type ListFilters struct {
	Category string
	MinPrice *int64
	MaxPrice *int64
	Query    string
	City     string
	Near     *geo.Point
	RadiusKM float64
	Limit    int
	Offset   int
}

// ListResult is one page of browse results.
type ListResult struct {
	Items  []Item `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
