package wishlist

import (
	"time"

	"github.com/angelmondragon/giftbox-backend/internal/catalog"
)

// ItemDTO wraps the experience included in a wishlist row.
type ItemDTO struct {
	Experience catalog.Item `json:"experience"`
	CreatedAt  time.Time    `json:"created_at"`
}

// PageDTO returns a cursor-paginated wishlist view.
type PageDTO struct {
	Items  []ItemDTO `json:"items"`
	Cursor string    `json:"next_cursor,omitempty"`
}

// IDsDTO is a lightweight projection containing only experience IDs.
type IDsDTO struct {
	ExperienceIDs []string `json:"experience_ids"`
}
