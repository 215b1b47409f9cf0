package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/pkg/enums"
	"github.com/attarco/attar-backend/pkg/types"
)

// Order is the persisted record produced from a cart snapshot, one address and
// one payment method. Item lines, the address snapshot and all price fields are
// immutable after creation; only status and payment fields move.
type Order struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	IdempotencyKey     string                `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Status             enums.OrderStatus     `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod      enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	IsPaid             bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt             *time.Time            `gorm:"column:paid_at"`
	ShippingAddress    types.AddressSnapshot `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Currency           enums.Currency        `gorm:"column:currency;not null;default:'INR'"`
	ItemsPricePaise    int64                 `gorm:"column:items_price_paise;not null"`
	ShippingPricePaise int64                 `gorm:"column:shipping_price_paise;not null;default:0"`
	TaxPricePaise      int64                 `gorm:"column:tax_price_paise;not null;default:0"`
	TotalPricePaise    int64                 `gorm:"column:total_price_paise;not null"`
	Items              []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntent      *PaymentIntent        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
