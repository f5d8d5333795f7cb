package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem links a user to a saved experience.
type WishlistItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:wishlists_user_id_idx;uniqueIndex:wishlists_user_experience_key"`
	ExperienceID string    `gorm:"column:experience_id;type:text;not null;uniqueIndex:wishlists_user_experience_key"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WishlistItem) TableName() string { return "wishlists" }
