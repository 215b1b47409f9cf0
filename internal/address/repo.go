package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
)

// Repository defines the persistence surface required by the address service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	Create(ctx context.Context, record *models.Address) (*models.Address, error)
	Update(ctx context.Context, record *models.Address) (*models.Address, error)
	ClearDefault(ctx context.Context, userID uuid.UUID) error
}

// GormRepository persists addresses through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
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

// ListByUser returns the user's addresses, default first then newest first.
func (r *GormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByIDAndUser returns an address restricted to the owning user.
func (r *GormRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var record models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new address.
func (r *GormRepository) Create(ctx context.Context, record *models.Address) (*models.Address, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Update saves the provided address.
func (r *GormRepository) Update(ctx context.Context, record *models.Address) (*models.Address, error) {
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// ClearDefault unsets is_default on all of the user's addresses.
func (r *GormRepository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
