package cart

import (
	"time"

	"github.com/google/uuid"
)

// Mode identifies which store backs a cart.
type Mode string

const (
	ModeGuest         Mode = "guest"
	ModeAuthenticated Mode = "authenticated"
)

// Owner identifies a cart. UserID wins when both are set.
type Owner struct {
	UserID     *uuid.UUID
	GuestToken string
}

// Mode reports the store the owner's cart lives in.
func (o Owner) Mode() Mode {
	if o.UserID != nil && *o.UserID != uuid.Nil {
		return ModeAuthenticated
	}
	return ModeGuest
}

// Line is a stored cart entry, independent of the backing store.
type Line struct {
	ExperienceID string     `json:"experience_id"`
	Quantity     int        `json:"quantity"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`
}

// LineView is a cart line with catalog details resolved.
type LineView struct {
	ExperienceID string     `json:"experience_id"`
	Title        string     `json:"title"`
	ImageURL     string     `json:"image_url"`
	Location     string     `json:"location"`
	Quantity     int        `json:"quantity"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`
	UnitPrice    int64      `json:"unit_price"`
	LineTotal    int64      `json:"line_total"`
	PricePending bool       `json:"price_pending,omitempty"`
}

// View is the rendered cart. Total sums resolved lines only.
type View struct {
	Mode         Mode       `json:"mode"`
	Items        []LineView `json:"items"`
	ItemCount    int        `json:"item_count"`
	Total        int64      `json:"total"`
	PricePending bool       `json:"price_pending"`
}

// AddInput adds or replaces one line.
type AddInput struct {
	ExperienceID string
	Quantity     int
	SelectedDate *time.Time
}
