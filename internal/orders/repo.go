package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
)

// Repository defines the persistence surface required by the order service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.Order) (*models.Order, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error
}

// GormRepository persists orders through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided DB.
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

// Create inserts the order with its items and payment intent.
func (r *GormRepository) Create(ctx context.Context, record *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByIDAndUser returns an order restricted to the owning user.
func (r *GormRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PaymentIntent").
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByIdempotencyKey returns the user's order carrying the key, if any.
func (r *GormRepository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PaymentIntent").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser returns the user's orders, newest first.
func (r *GormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("PaymentIntent").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaid flips the order to paid and processing.
func (r *GormRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  enums.OrderStatusProcessing,
			"is_paid": true,
			"paid_at": paidAt,
		}).Error
}

// UpdateIntent saves the payment intent.
func (r *GormRepository) UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}
