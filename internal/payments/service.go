package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/internal/orders"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/attarco/attar-backend/pkg/metrics"
	"github.com/attarco/attar-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.GatewayOrder, error)
	VerifySignature(ctx context.Context, params razorpay.VerifyParams) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type cartClearer interface {
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type settlementNotifier interface {
	OnOrderSettled(ctx context.Context, userID uuid.UUID, sessionID string) error
}

// CheckoutPrefill is handed to the hosted checkout UI so the shopper
// does not retype their details.
type CheckoutPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// CreateResult is everything the client needs to open the gateway modal.
type CreateResult struct {
	KeyID          string
	GatewayOrderID string
	AmountPaise    int64
	Currency       enums.Currency
	Prefill        CheckoutPrefill
}

// VerifyInput carries the callback fields the hosted checkout posts
// back, plus the browser session whose cart copy is retired once the
// payment settles.
type VerifyInput struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	SessionID        string
}

// Service drives gateway payment settlement for pending orders.
type Service interface {
	CreateGatewayOrder(ctx context.Context, userID, orderID uuid.UUID) (*CreateResult, error)
	Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*models.Order, error)
}

type service struct {
	repo    orders.Repository
	tx      txRunner
	gateway gateway
	users   userLoader
	carts   cartClearer
	sync    settlementNotifier
	metrics *metrics.CheckoutMetrics
	logger  *logger.Logger
}

// NewService builds the payment service.
func NewService(repo orders.Repository, tx txRunner, gw gateway, users userLoader, carts cartClearer, sync settlementNotifier, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if sync == nil {
		return nil, fmt.Errorf("settlement notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		gateway: gw,
		users:   users,
		carts:   carts,
		sync:    sync,
		metrics: checkoutMetrics,
		logger:  logg,
	}, nil
}

// CreateGatewayOrder opens (or re-opens) gateway settlement for a pending
// order. A second call for the same order returns the gateway order
// created the first time, so a dismissed modal can simply be reopened.
func (s *service) CreateGatewayOrder(ctx context.Context, userID, orderID uuid.UUID) (*CreateResult, error) {
	record, err := s.loadGatewayOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if record.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}

	intent := record.PaymentIntent
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order has no payment intent")
	}

	if intent.GatewayOrderID == nil {
		created, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
			AmountPaise: record.TotalPricePaise,
			Currency:    string(record.Currency),
			Receipt:     record.ID.String(),
			Notes:       map[string]any{"order_id": record.ID.String()},
		})
		if err != nil {
			return nil, err
		}
		intent.GatewayOrderID = &created.ID
		if err := s.repo.UpdateIntent(ctx, intent); err != nil {
			return nil, err
		}
	}

	return &CreateResult{
		KeyID:          s.gateway.KeyID(),
		GatewayOrderID: *intent.GatewayOrderID,
		AmountPaise:    record.TotalPricePaise,
		Currency:       record.Currency,
		Prefill:        s.prefill(ctx, record),
	}, nil
}

// Verify settles a gateway payment. Only a valid signature marks the
// order paid and clears the cart; a mismatch records the failure and
// leaves the order pending so payment can be retried.
func (s *service) Verify(ctx context.Context, userID uuid.UUID, input VerifyInput) (*models.Order, error) {
	record, err := s.loadGatewayOrder(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}

	intent := record.PaymentIntent
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order has no payment intent")
	}
	if record.IsPaid {
		return record, nil
	}
	if intent.GatewayOrderID == nil || *intent.GatewayOrderID != input.GatewayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order does not belong to this order")
	}

	if err := s.gateway.VerifySignature(ctx, razorpay.VerifyParams{
		GatewayOrderID:   input.GatewayOrderID,
		GatewayPaymentID: input.GatewayPaymentID,
		Signature:        input.Signature,
	}); err != nil {
		reason := err.Error()
		intent.Status = enums.PaymentStatusFailed
		intent.FailureReason = &reason
		if saveErr := s.repo.UpdateIntent(ctx, intent); saveErr != nil {
			s.logger.Error(ctx, "recording failed verification", saveErr)
		}
		s.metrics.IncVerified("failure")
		return nil, err
	}

	paidAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.MarkPaid(ctx, record.ID, paidAt); err != nil {
			return err
		}
		intent.Status = enums.PaymentStatusPaid
		intent.GatewayPaymentID = &input.GatewayPaymentID
		intent.FailureReason = nil
		if err := repo.UpdateIntent(ctx, intent); err != nil {
			return err
		}
		return s.carts.ClearTx(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	// the session cart copy goes with the server cart, otherwise the
	// next read resurrects the paid-for items from the mirror
	if err := s.sync.OnOrderSettled(ctx, userID, input.SessionID); err != nil {
		s.logger.Error(ctx, "retiring cart session copy after payment failed", err)
	}

	record.Status = enums.OrderStatusProcessing
	record.IsPaid = true
	record.PaidAt = &paidAt
	s.metrics.IncVerified("success")
	s.logger.Info(s.logger.WithOrderID(ctx, record.ID.String()), "payment verified")
	return record, nil
}

func (s *service) loadGatewayOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
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
	if record.PaymentMethod != enums.PaymentMethodRazorpay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a gateway payment")
	}
	return record, nil
}

func (s *service) prefill(ctx context.Context, record *models.Order) CheckoutPrefill {
	prefill := CheckoutPrefill{
		Name:    record.ShippingAddress.FullName,
		Contact: record.ShippingAddress.Phone,
	}
	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		s.logger.Error(ctx, "loading user for checkout prefill", err)
		return prefill
	}
	prefill.Email = user.Email
	if prefill.Name == "" {
		prefill.Name = user.Name
	}
	if prefill.Contact == "" && user.Phone != nil {
		prefill.Contact = *user.Phone
	}
	return prefill
}
