package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, record *models.Cart) (*models.Cart, error)
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error
	UpdateSubtotal(ctx context.Context, cartID uuid.UUID, subtotalPaise int64) error
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error
}

// ProductLoader resolves catalog rows for pricing cart lines.
type ProductLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}
