package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog row carts and orders price against.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	ImageRef       string    `gorm:"column:image_ref"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
