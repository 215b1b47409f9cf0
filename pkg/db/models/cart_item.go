package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem snapshots one product line inside a server cart.
// Item identity within a cart is the product id.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	Name           string    `gorm:"column:name;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	ImageRef       string    `gorm:"column:image_ref"`
	Quantity       int       `gorm:"column:quantity;not null"`
	Position       int       `gorm:"column:position;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
