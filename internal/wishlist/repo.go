package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates. It reports whether
// a row was written.
func (r *Repository) AddItem(ctx context.Context, userID uuid.UUID, experienceID string) (bool, error) {
	if userID == uuid.Nil || experienceID == "" {
		return false, gorm.ErrInvalidValue
	}
	row := models.WishlistItem{
		ID:           uuid.New(),
		UserID:       userID,
		ExperienceID: experienceID,
		CreatedAt:    time.Now().UTC(),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "experience_id"}}, DoNothing: true}).
		Create(&row)
	return res.RowsAffected > 0, res.Error
}

// RemoveItem deletes the user-experience entry if it exists.
func (r *Repository) RemoveItem(ctx context.Context, userID uuid.UUID, experienceID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND experience_id = ?", userID, experienceID).
		Delete(&models.WishlistItem{})
	return res.RowsAffected > 0, res.Error
}

// ListItems returns wishlist rows newest first, starting after cursor.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WishlistItem, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.WishlistItem
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListExperienceIDs returns every experience the user saved.
func (r *Repository) ListExperienceIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.WishlistItem{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("experience_id", &ids).Error
	return ids, err
}
