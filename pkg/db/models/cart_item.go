package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line of an authenticated user's cart. At most one row exists
// per (user_id, experience_id).
type CartItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:cart_items_user_experience_key"`
	ExperienceID string     `gorm:"column:experience_id;type:text;not null;uniqueIndex:cart_items_user_experience_key"`
	Quantity     int        `gorm:"column:quantity;not null;default:1"`
	SelectedDate *time.Time `gorm:"column:selected_date;type:date"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
