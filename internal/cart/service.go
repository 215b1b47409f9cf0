package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/pkg/db/models"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes server cart operations for authenticated users. Line
// prices always come from the catalog at mutation time.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (Snapshot, error)
	Replace(ctx context.Context, userID uuid.UUID, lines []Line) (Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	products ProductLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products ProductLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// Get returns the user's active cart, or an empty snapshot when none exists.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	if userID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewSnapshot(nil, 0), nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(LinesFromItems(record.Items), 0), nil
}

// Add puts quantity of a product into the cart, pricing the line from the
// catalog.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error) {
	if quantity < 1 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	line, err := s.catalogLine(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.mutate(ctx, userID, func(lines []Line) []Line {
		return ApplyAdd(lines, line, quantity)
	})
}

// SetQuantity replaces the quantity on an existing line. Quantities below
// one leave the cart unchanged.
func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error) {
	if productID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutate(ctx, userID, func(lines []Line) []Line {
		return ApplySetQuantity(lines, productID, quantity)
	})
}

// Remove drops the product's line from the cart.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (Snapshot, error) {
	if productID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.mutate(ctx, userID, func(lines []Line) []Line {
		return ApplyRemove(lines, productID)
	})
}

// Replace overwrites the cart with the provided lines, repricing each
// from the catalog. Lines for unknown or inactive products are dropped.
func (s *service) Replace(ctx context.Context, userID uuid.UUID, lines []Line) (Snapshot, error) {
	priced := make([]Line, 0, len(lines))
	for _, line := range lines {
		fresh, err := s.catalogLine(ctx, line.ProductID)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				continue
			}
			return Snapshot{}, err
		}
		fresh.Quantity = line.Quantity
		priced = append(priced, fresh)
	}
	return s.mutate(ctx, userID, func([]Line) []Line {
		return priced
	})
}

// Clear empties the user's active cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ClearTx(ctx, tx, userID)
	})
}

// ClearTx empties the cart inside a caller-owned transaction. Order
// creation uses it so the paid-for cart clears atomically with the order.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	record, err := repo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := repo.ReplaceItems(ctx, record.ID, nil); err != nil {
		return err
	}
	return repo.UpdateSubtotal(ctx, record.ID, 0)
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, apply func([]Line) []Line) (Snapshot, error) {
	if userID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var next []Line
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindActiveByUser(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record, err = repo.Create(ctx, &models.Cart{UserID: userID})
		}
		if err != nil {
			return err
		}

		next = apply(LinesFromItems(record.Items))
		if err := repo.ReplaceItems(ctx, record.ID, ItemsFromLines(next)); err != nil {
			return err
		}
		return repo.UpdateSubtotal(ctx, record.ID, Subtotal(next))
	})
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(next, 0), nil
}

func (s *service) catalogLine(ctx context.Context, productID uuid.UUID) (Line, error) {
	if productID == uuid.Nil {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return Line{}, err
	}
	if !product.IsActive {
		return Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return Line{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPricePaise: product.UnitPricePaise,
		ImageRef:       product.ImageRef,
	}, nil
}

// LinesFromItems converts persisted cart items to cart lines.
func LinesFromItems(items []models.CartItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPricePaise: item.UnitPricePaise,
			ImageRef:       item.ImageRef,
			Quantity:       item.Quantity,
		})
	}
	return lines
}

// ItemsFromLines converts cart lines to persisted cart items.
func ItemsFromLines(lines []Line) []models.CartItem {
	items := make([]models.CartItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, models.CartItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPricePaise: line.UnitPricePaise,
			ImageRef:       line.ImageRef,
			Quantity:       line.Quantity,
			Position:       i,
		})
	}
	return items
}
