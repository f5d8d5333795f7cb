package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/pagination"
)

// Repository persists bookings and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a bookings repository bound to the provided DB.
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

// Create inserts the booking together with its items.
func (r *Repository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	for i := range booking.Items {
		if booking.Items[i].ID == uuid.Nil {
			booking.Items[i].ID = uuid.New()
		}
		booking.Items[i].BookingID = booking.ID
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *Repository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindForUser loads one of the user's bookings with items.
func (r *Repository) FindForUser(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ? AND user_id = ?", bookingID, userID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListByUser pages through the user's bookings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Booking, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Booking
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("experience_id ASC")
}
