package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem captures the snapshot of one cart line at order creation time.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	ImageRef       string    `gorm:"column:image_ref"`
	Quantity       int       `gorm:"column:quantity;not null"`
	LineTotalPaise int64     `gorm:"column:line_total_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
