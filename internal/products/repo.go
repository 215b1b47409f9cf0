package products

import (
	"context"

	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads catalog rows. The catalog itself is managed elsewhere; this
// service only prices carts and orders against it.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
