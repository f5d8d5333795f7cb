package types

import "time"

// PaymentItem snapshots one cart line at the moment a gateway order is created.
// UnitPrice is in rupees.
type PaymentItem struct {
	ExperienceID string     `json:"experience_id"`
	Title        string     `json:"title"`
	Quantity     int        `json:"quantity"`
	UnitPrice    int64      `json:"unit_price"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`
}

// LineTotal is UnitPrice × Quantity.
func (p PaymentItem) LineTotal() int64 {
	return p.UnitPrice * int64(p.Quantity)
}
