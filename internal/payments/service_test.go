package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/internal/orders"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/attarco/attar-backend/pkg/metrics"
	"github.com/attarco/attar-backend/pkg/razorpay"
	"github.com/attarco/attar-backend/pkg/types"
)

type memoryOrderRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (r *memoryOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *memoryOrderRepo) Create(ctx context.Context, record *models.Order) (*models.Order, error) {
	r.orders[record.ID] = record
	return record, nil
}

func (r *memoryOrderRepo) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	record, ok := r.orders[id]
	if !ok || record.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (r *memoryOrderRepo) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (r *memoryOrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	record, ok := r.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.Status = enums.OrderStatusProcessing
	record.IsPaid = true
	record.PaidAt = &paidAt
	return nil
}

func (r *memoryOrderRepo) UpdateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubGateway struct {
	created   []razorpay.OrderCreateParams
	verifyErr error
	createErr error
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func (g *stubGateway) CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.GatewayOrder, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, params)
	return &razorpay.GatewayOrder{
		ID:          "order_rzp_001",
		AmountPaise: params.AmountPaise,
		Currency:    params.Currency,
	}, nil
}

func (g *stubGateway) VerifySignature(ctx context.Context, params razorpay.VerifyParams) error {
	return g.verifyErr
}

type stubUsers struct {
	user *models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, nil
}

type stubCarts struct {
	cleared bool
}

func (s *stubCarts) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubSync struct {
	settled   bool
	sessionID string
}

func (s *stubSync) OnOrderSettled(ctx context.Context, userID uuid.UUID, sessionID string) error {
	s.settled = true
	s.sessionID = sessionID
	return nil
}

type paymentFixture struct {
	svc     Service
	repo    *memoryOrderRepo
	gateway *stubGateway
	carts   *stubCarts
	sync    *stubSync
	userID  uuid.UUID
	order   *models.Order
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	userID := uuid.New()
	phone := "9876543210"
	order := &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		IdempotencyKey: uuid.NewString(),
		Status:         enums.OrderStatusPending,
		PaymentMethod:  enums.PaymentMethodRazorpay,
		Currency:       enums.CurrencyINR,
		ShippingAddress: types.AddressSnapshot{
			FullName: "Ayesha Khan", Phone: phone,
			AddressLine1: "12 Rose Garden Lane", City: "Hyderabad", State: "Telangana", Pincode: "500001",
		},
		ItemsPricePaise: 60000,
		TotalPricePaise: 60000,
		PaymentIntent: &models.PaymentIntent{
			ID: uuid.New(), Method: enums.PaymentMethodRazorpay,
			Status: enums.PaymentStatusUnpaid, AmountPaise: 60000,
		},
	}

	f := &paymentFixture{
		repo:    newMemoryOrderRepo(),
		gateway: &stubGateway{},
		carts:   &stubCarts{},
		sync:    &stubSync{},
		userID:  userID,
		order:   order,
	}
	f.repo.orders[order.ID] = order

	users := &stubUsers{user: &models.User{
		ID: userID, Name: "Ayesha Khan", Email: "ayesha@example.com", Phone: &phone,
	}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(f.repo, passthroughTx{}, f.gateway, users, f.carts, f.sync, metrics.NewCheckoutMetrics(nil), logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestCreateGatewayOrder(t *testing.T) {
	f := newPaymentFixture(t)

	result, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.ID)
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_key", result.KeyID)
	assert.Equal(t, "order_rzp_001", result.GatewayOrderID)
	assert.Equal(t, int64(60000), result.AmountPaise)
	assert.Equal(t, enums.CurrencyINR, result.Currency)
	assert.Equal(t, "Ayesha Khan", result.Prefill.Name)
	assert.Equal(t, "ayesha@example.com", result.Prefill.Email)
	assert.Equal(t, "9876543210", result.Prefill.Contact)

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, int64(60000), f.gateway.created[0].AmountPaise)
}

func TestCreateGatewayOrderReturnsExistingOnSecondCall(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)
	second, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Len(t, f.gateway.created, 1)
}

func TestCreateGatewayOrderRejectsCOD(t *testing.T) {
	f := newPaymentFixture(t)
	f.order.PaymentMethod = enums.PaymentMethodCOD

	_, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.ID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCreateGatewayOrderRejectsPaidOrder(t *testing.T) {
	f := newPaymentFixture(t)
	f.order.IsPaid = true

	_, err := f.svc.CreateGatewayOrder(context.Background(), f.userID, f.order.ID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestCreateGatewayOrderForeignOrderNotFound(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.svc.CreateGatewayOrder(context.Background(), uuid.New(), f.order.ID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func verifyInput(f *paymentFixture) VerifyInput {
	return VerifyInput{
		OrderID:          f.order.ID,
		GatewayOrderID:   "order_rzp_001",
		GatewayPaymentID: "pay_rzp_777",
		Signature:        "sig",
	}
}

func TestVerifyMarksOrderPaidAndClearsCart(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	record, err := f.svc.Verify(ctx, f.userID, verifyInput(f))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusProcessing, record.Status)
	assert.True(t, record.IsPaid)
	require.NotNil(t, record.PaidAt)
	assert.Equal(t, enums.PaymentStatusPaid, record.PaymentIntent.Status)
	require.NotNil(t, record.PaymentIntent.GatewayPaymentID)
	assert.Equal(t, "pay_rzp_777", *record.PaymentIntent.GatewayPaymentID)
	assert.True(t, f.carts.cleared)
	assert.True(t, f.sync.settled)
}

func TestVerifyRetiresSessionCartCopy(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	input := verifyInput(f)
	input.SessionID = "sess-42"

	_, err = f.svc.Verify(ctx, f.userID, input)
	require.NoError(t, err)

	assert.True(t, f.sync.settled)
	assert.Equal(t, "sess-42", f.sync.sessionID)
}

func TestVerifyBadSignatureKeepsOrderPending(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	f.gateway.verifyErr = pkgerrors.New(pkgerrors.CodeGateway, "payment signature verification failed")

	_, err = f.svc.Verify(ctx, f.userID, verifyInput(f))

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeGateway, appErr.Code())

	assert.Equal(t, enums.OrderStatusPending, f.order.Status)
	assert.False(t, f.order.IsPaid)
	assert.Equal(t, enums.PaymentStatusFailed, f.order.PaymentIntent.Status)
	require.NotNil(t, f.order.PaymentIntent.FailureReason)
	assert.False(t, f.carts.cleared)
	assert.False(t, f.sync.settled)
}

func TestVerifyRetryAfterFailureSucceeds(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	f.gateway.verifyErr = pkgerrors.New(pkgerrors.CodeGateway, "payment signature verification failed")
	_, err = f.svc.Verify(ctx, f.userID, verifyInput(f))
	require.Error(t, err)

	f.gateway.verifyErr = nil
	record, err := f.svc.Verify(ctx, f.userID, verifyInput(f))
	require.NoError(t, err)

	assert.True(t, record.IsPaid)
	assert.Equal(t, enums.PaymentStatusPaid, record.PaymentIntent.Status)
	assert.Nil(t, record.PaymentIntent.FailureReason)
}

func TestVerifyAlreadyPaidIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	first, err := f.svc.Verify(ctx, f.userID, verifyInput(f))
	require.NoError(t, err)

	f.carts.cleared = false
	f.sync.settled = false
	second, err := f.svc.Verify(ctx, f.userID, verifyInput(f))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, f.carts.cleared)
	assert.False(t, f.sync.settled)
}

func TestVerifyMismatchedGatewayOrderRejected(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGatewayOrder(ctx, f.userID, f.order.ID)
	require.NoError(t, err)

	input := verifyInput(f)
	input.GatewayOrderID = "order_rzp_other"

	_, err = f.svc.Verify(ctx, f.userID, input)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
