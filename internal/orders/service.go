package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/internal/address"
	"github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/internal/checkout"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/attarco/attar-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartAccess interface {
	Get(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type checkoutGuard interface {
	EnsureReady(ctx context.Context, userID uuid.UUID) (*checkout.Session, *models.Address, error)
	Complete(ctx context.Context, userID uuid.UUID) error
}

type settlementNotifier interface {
	OnOrderSettled(ctx context.Context, userID uuid.UUID, sessionID string) error
}

// CreateInput is what the client may say about a new order. Everything
// priced is recomputed here; client amounts are never accepted.
// SessionID names the browser session whose cart copy is retired once a
// cash on delivery order takes ownership of the cart.
type CreateInput struct {
	AddressID      uuid.UUID
	PaymentMethod  enums.PaymentMethod
	IdempotencyKey string
	SessionID      string
}

// Service creates and reads orders.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cartAccess
	checkout checkoutGuard
	products cart.ProductLoader
	sync     settlementNotifier
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

// NewService builds the order service.
func NewService(repo Repository, tx txRunner, carts cartAccess, checkoutSvc checkoutGuard, products cart.ProductLoader, sync settlementNotifier, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if checkoutSvc == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if sync == nil {
		return nil, fmt.Errorf("settlement notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		carts:    carts,
		checkout: checkoutSvc,
		products: products,
		sync:     sync,
		metrics:  checkoutMetrics,
		logger:   logg,
	}, nil
}

// Create turns the user's cart into an order. Resubmitting the same
// idempotency key returns the order created the first time. Cash on
// delivery confirms immediately and clears the cart in the same
// transaction; gateway orders stay pending with the cart intact until
// payment is verified.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error) {
	started := time.Now()

	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	input.IdempotencyKey = strings.TrimSpace(input.IdempotencyKey)
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if !input.PaymentMethod.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	existing, err := s.repo.FindByIdempotencyKey(ctx, userID, input.IdempotencyKey)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session, shipTo, err := s.checkout.EnsureReady(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.AddressID != uuid.Nil && session.AddressID != nil && input.AddressID != *session.AddressID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address does not match the checkout selection")
	}

	snap, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repriceFromCatalog(ctx, snap.Items)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(lines)

	record := buildOrder(userID, input, shipTo, lines, totals)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, record); err != nil {
			return err
		}
		if input.PaymentMethod == enums.PaymentMethodCOD {
			return s.carts.ClearTx(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			replay, findErr := s.repo.FindByIdempotencyKey(ctx, userID, input.IdempotencyKey)
			if findErr == nil {
				return replay, nil
			}
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key already used")
		}
		return nil, err
	}

	if err := s.checkout.Complete(ctx, userID); err != nil {
		s.logger.Error(ctx, "clearing checkout session after order failed", err)
	}
	if input.PaymentMethod == enums.PaymentMethodCOD {
		// the session cart copy goes with the server cart, otherwise the
		// next read resurrects the paid-for items from the mirror
		if err := s.sync.OnOrderSettled(ctx, userID, input.SessionID); err != nil {
			s.logger.Error(ctx, "retiring cart session copy after order failed", err)
		}
	}

	s.metrics.IncOrder(string(input.PaymentMethod))
	s.metrics.ObserveOrderCreate(string(input.PaymentMethod), time.Since(started))
	s.logger.Info(s.logger.WithOrderID(ctx, record.ID.String()), "order created")
	return record, nil
}

// Get returns one of the user's orders.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id are required")
	}
	record, err := s.repo.FindByIDAndUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the user's orders, newest first.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// repriceFromCatalog re-reads every line's unit price so stale cart
// snapshots can never fix a price.
func (s *service) repriceFromCatalog(ctx context.Context, lines []cart.Line) ([]cart.Line, error) {
	priced := make([]cart.Line, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is no longer available", line.Name))
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is no longer available", product.Name))
		}
		priced = append(priced, cart.Line{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPricePaise: product.UnitPricePaise,
			ImageRef:       product.ImageRef,
			Quantity:       line.Quantity,
		})
	}
	if len(priced) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return priced, nil
}

func buildOrder(userID uuid.UUID, input CreateInput, shipTo *models.Address, lines []cart.Line, totals Totals) *models.Order {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPricePaise: line.UnitPricePaise,
			ImageRef:       line.ImageRef,
			Quantity:       line.Quantity,
			LineTotalPaise: line.UnitPricePaise * int64(line.Quantity),
		})
	}

	status := enums.OrderStatusPending
	intentStatus := enums.PaymentStatusUnpaid
	if input.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.OrderStatusProcessing
		intentStatus = enums.PaymentStatusCODPending
	}

	return &models.Order{
		UserID:             userID,
		IdempotencyKey:     input.IdempotencyKey,
		Status:             status,
		PaymentMethod:      input.PaymentMethod,
		IsPaid:             false,
		ShippingAddress:    address.Snapshot(shipTo),
		Currency:           enums.CurrencyINR,
		ItemsPricePaise:    totals.ItemsPaise,
		ShippingPricePaise: totals.ShippingPaise,
		TaxPricePaise:      totals.TaxPaise,
		TotalPricePaise:    totals.TotalPaise,
		Items:              items,
		PaymentIntent: &models.PaymentIntent{
			Method:      input.PaymentMethod,
			Status:      intentStatus,
			AmountPaise: totals.TotalPaise,
		},
	}
}
