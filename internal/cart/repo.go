package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
)

// GormRepository persists server carts through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *GormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &GormRepository{db: tx}
}

// FindActiveByUser loads the user's active cart with items in insertion order.
func (r *GormRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new cart.
func (r *GormRepository) Create(ctx context.Context, record *models.Cart) (*models.Cart, error) {
	if record.Status == "" {
		record.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// ReplaceItems atomically replaces the items belonging to a cart.
func (r *GormRepository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].CartID = cartID
		items[i].Position = i
	}
	return tx.Create(&items).Error
}

// UpdateSubtotal updates the denormalized subtotal on a cart.
func (r *GormRepository) UpdateSubtotal(ctx context.Context, cartID uuid.UUID, subtotalPaise int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("subtotal_paise", subtotalPaise).Error
}

// UpdateStatus updates the status of a cart.
func (r *GormRepository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("status", status).Error
}
