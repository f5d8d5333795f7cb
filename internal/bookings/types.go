package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
)

// Item is one booked experience.
type Item struct {
	ExperienceID string     `json:"experience_id"`
	Title        string     `json:"title"`
	Quantity     int        `json:"quantity"`
	UnitPrice    int64      `json:"unit_price"`
	LineTotal    int64      `json:"line_total"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`
}

// Detail is a booking as returned to its owner.
type Detail struct {
	ID               uuid.UUID           `json:"id"`
	GatewayPaymentID string              `json:"payment_id"`
	Status           enums.BookingStatus `json:"status"`
	TotalAmount      int64               `json:"total_amount"`
	Currency         enums.Currency      `json:"currency"`
	Items            []Item              `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ListResult is one page of bookings.
type ListResult struct {
	Items  []Detail `json:"items"`
	Cursor string   `json:"cursor,omitempty"`
}

// ToDetail maps the stored booking for API responses.
func ToDetail(b *models.Booking) Detail {
	items := make([]Item, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, Item{
			ExperienceID: it.ExperienceID,
			Title:        it.Title,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			LineTotal:    it.UnitPrice * int64(it.Quantity),
			SelectedDate: it.SelectedDate,
		})
	}
	return Detail{
		ID:               b.ID,
		GatewayPaymentID: b.GatewayPaymentID,
		Status:           b.Status,
		TotalAmount:      b.TotalAmount,
		Currency:         b.Currency,
		Items:            items,
		CreatedAt:        b.CreatedAt,
	}
}
