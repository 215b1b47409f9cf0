package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
)

// Repository reads user rows for checkout prefill.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a user repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var record models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
