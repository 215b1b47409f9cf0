package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/pkg/enums"
)

// PaymentIntent tracks gateway settlement progress for an order. For gateway
// payments it ties the order to the Razorpay order id between "proceed to pay"
// and verified settlement; for cash on delivery it is the synthetic record
// created alongside the order.
type PaymentIntent struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method           enums.PaymentMethod `gorm:"column:method;not null;default:'cod'"`
	Status           enums.PaymentStatus `gorm:"column:status;not null;default:'unpaid'"`
	AmountPaise      int64               `gorm:"column:amount_paise;not null"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;index"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
