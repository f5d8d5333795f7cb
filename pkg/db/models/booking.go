package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/enums"
)

// Booking is created when a verified payment is checked out. GatewayPaymentID
// is unique so a replayed checkout resolves to the same booking.
type Booking struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentID        uuid.UUID           `gorm:"column:payment_ref;type:uuid;not null"`
	GatewayPaymentID string              `gorm:"column:gateway_payment_id;not null;uniqueIndex"`
	Status           enums.BookingStatus `gorm:"column:status;not null;default:'confirmed'"`
	TotalAmount      int64               `gorm:"column:total_amount;not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null;default:'INR'"`
	Items            []BookingItem       `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BookingItem snapshots one cart line at checkout time. UnitPrice is in rupees.
type BookingItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID    uuid.UUID  `gorm:"column:booking_id;type:uuid;not null;index"`
	ExperienceID string     `gorm:"column:experience_id;type:text;not null"`
	Title        string     `gorm:"column:title;not null"`
	Quantity     int        `gorm:"column:quantity;not null"`
	UnitPrice    int64      `gorm:"column:unit_price;not null"`
	SelectedDate *time.Time `gorm:"column:selected_date;type:date"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
