package cart

import (
	"context"
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists authenticated carts in cart_items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert inserts the line or, when (user_id, experience_id) already exists,
// overwrites its quantity and date.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, line Line) error {
	row := models.CartItem{
		ID:           uuid.New(),
		UserID:       userID,
		ExperienceID: line.ExperienceID,
		Quantity:     line.Quantity,
		SelectedDate: line.SelectedDate,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "experience_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "selected_date", "updated_at"}),
		}).
		Create(&row).Error
}

// ListByUser returns the user's lines, oldest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("experience_id ASC").
		Find(&rows).Error
	return rows, err
}

// Remove deletes one line and reports whether it existed.
func (r *Repository) Remove(ctx context.Context, userID uuid.UUID, experienceID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND experience_id = ?", userID, experienceID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// UpdateFields patches one line and reports whether it existed.
func (r *Repository) UpdateFields(ctx context.Context, userID uuid.UUID, experienceID string, fields map[string]any) (bool, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND experience_id = ?", userID, experienceID).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// ClearByUser deletes every line for the user.
func (r *Repository) ClearByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
