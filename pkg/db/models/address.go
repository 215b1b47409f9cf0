package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a saved shipping address owned by a user.
// At most one address per user carries is_default=true; the address service
// enforces that transactionally.
type Address struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName     string    `gorm:"column:full_name;not null"`
	Phone        string    `gorm:"column:phone;not null"`
	AddressLine1 string    `gorm:"column:address_line1;not null"`
	AddressLine2 *string   `gorm:"column:address_line2"`
	City         string    `gorm:"column:city;not null"`
	State        string    `gorm:"column:state;not null"`
	Pincode      string    `gorm:"column:pincode;not null"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
