package models

import (
	"time"

	"github.com/lib/pq"
)

// Experience is a bookable catalog listing. IDs are opaque strings owned by the
// catalog so that identifiers returned by the recommendation service resolve
// by primary key.
type Experience struct {
	ID           string         `gorm:"column:id;type:text;primaryKey"`
	Title        string         `gorm:"column:title;not null"`
	Description  string         `gorm:"column:description;not null;default:''"`
	Category     string         `gorm:"column:category;not null;default:''"`
	Price        int64          `gorm:"column:price;not null;default:0"`
	ImageURLs    pq.StringArray `gorm:"column:image_url;type:text[];not null;default:'{}'"`
	Location     string         `gorm:"column:location;not null;default:''"`
	Latitude     *float64       `gorm:"column:latitude"`
	Longitude    *float64       `gorm:"column:longitude"`
	Duration     string         `gorm:"column:duration;not null;default:''"`
	Participants string         `gorm:"column:participants;not null;default:''"`
	Date         string         `gorm:"column:date;not null;default:''"`
	ProviderID   *string        `gorm:"column:provider_id"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Experience) TableName() string { return "experiences" }
