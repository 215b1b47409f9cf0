package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Input carries the fields a shopper submits for a shipping address.
type Input struct {
	FullName     string  `json:"fullName" validate:"required"`
	Phone        string  `json:"phone" validate:"required,len=10,numeric"`
	AddressLine1 string  `json:"addressLine1" validate:"required"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required"`
	Pincode      string  `json:"pincode" validate:"required,len=6,numeric"`
	IsDefault    *bool   `json:"isDefault,omitempty"`
}

// Service manages a shopper's saved shipping addresses.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error)
	Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.Address, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	validate *validator.Validate
}

// NewService builds an address service backed by the provided stack.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// List returns the user's saved addresses, default first.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one address owned by the user.
func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and address id are required")
	}
	record, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Create saves a new address. New addresses become the default unless the
// shopper opts out; prior defaults are unset in the same transaction so at
// most one default exists per user.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	input = normalizeInput(input)
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	isDefault := true
	if input.IsDefault != nil {
		isDefault = *input.IsDefault
	}

	record := &models.Address{
		UserID:       userID,
		FullName:     input.FullName,
		Phone:        input.Phone,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		Pincode:      input.Pincode,
		IsDefault:    isDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if isDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		_, err := repo.Create(ctx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Update replaces the fields of an address owned by the user, keeping the
// single-default invariant when the address becomes the default.
func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input Input) (*models.Address, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and address id are required")
	}
	input = normalizeInput(input)
	if err := s.checkInput(input); err != nil {
		return nil, err
	}

	var record *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDAndUser(ctx, id, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		if err != nil {
			return err
		}

		makeDefault := found.IsDefault
		if input.IsDefault != nil {
			makeDefault = *input.IsDefault
		}
		if makeDefault && !found.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}

		found.FullName = input.FullName
		found.Phone = input.Phone
		found.AddressLine1 = input.AddressLine1
		found.AddressLine2 = input.AddressLine2
		found.City = input.City
		found.State = input.State
		found.Pincode = input.Pincode
		found.IsDefault = makeDefault

		record, err = repo.Update(ctx, found)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) checkInput(input Input) error {
	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0]
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", strings.ToLower(field.Field())))
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid address")
	}
	return nil
}

func normalizeInput(input Input) Input {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Phone = strings.TrimSpace(input.Phone)
	input.AddressLine1 = strings.TrimSpace(input.AddressLine1)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.Pincode = strings.TrimSpace(input.Pincode)
	if input.AddressLine2 != nil {
		trimmed := strings.TrimSpace(*input.AddressLine2)
		if trimmed == "" {
			input.AddressLine2 = nil
		} else {
			input.AddressLine2 = &trimmed
		}
	}
	return input
}

// Snapshot copies an address into the immutable form stored on orders.
func Snapshot(record *models.Address) types.AddressSnapshot {
	return types.AddressSnapshot{
		FullName:     record.FullName,
		Phone:        record.Phone,
		AddressLine1: record.AddressLine1,
		AddressLine2: record.AddressLine2,
		City:         record.City,
		State:        record.State,
		Pincode:      record.Pincode,
	}
}
