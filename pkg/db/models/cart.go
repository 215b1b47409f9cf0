package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/pkg/enums"
)

// Cart is the server-side cart tied to an authenticated user.
type Cart struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Status        enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	SubtotalPaise int64            `gorm:"column:subtotal_paise;not null;default:0"`
	Items         []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
