package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/giftbox-backend/pkg/enums"
)

// Payment records a gateway order and, once the callback signature checks out,
// the captured payment. Amount is in paise.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID          string              `gorm:"column:order_id;not null;uniqueIndex"`
	GatewayPaymentID *string             `gorm:"column:payment_id;uniqueIndex"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'created'"`
	Amount           int64               `gorm:"column:amount;not null"`
	Currency         enums.Currency      `gorm:"column:currency;not null;default:'INR'"`
	Receipt          string              `gorm:"column:receipt;not null"`
	Items            datatypes.JSON      `gorm:"column:items;type:jsonb"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
