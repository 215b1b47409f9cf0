package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/redis"
)

type fakeKV struct {
	values map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	default:
		return assert.AnError
	}
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeKV) CheckoutKey(parts ...string) string {
	return "attar:checkout:" + strings.Join(parts, ":")
}

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

type stubAddresses struct {
	addresses map[uuid.UUID]*models.Address
}

func (s *stubAddresses) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	record, ok := s.addresses[id]
	if !ok || record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return record, nil
}

type stubCarts struct {
	snapshots map[uuid.UUID]cart.Snapshot
}

func (s *stubCarts) Get(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error) {
	return s.snapshots[userID], nil
}

type fixture struct {
	svc       Service
	users     *stubUsers
	addresses *stubAddresses
	carts     *stubCarts
	userID    uuid.UUID
}

func newFixture(t *testing.T, phone *string) *fixture {
	t.Helper()
	userID := uuid.New()
	users := &stubUsers{users: map[uuid.UUID]*models.User{
		userID: {ID: userID, Name: "Ayesha Khan", Email: "ayesha@example.com", Phone: phone},
	}}
	addresses := &stubAddresses{addresses: map[uuid.UUID]*models.Address{}}
	carts := &stubCarts{snapshots: map[uuid.UUID]cart.Snapshot{}}

	store, err := NewSessionStore(newFakeKV(), time.Hour)
	require.NoError(t, err)
	svc, err := NewService(store, users, addresses, carts)
	require.NoError(t, err)
	return &fixture{svc: svc, users: users, addresses: addresses, carts: carts, userID: userID}
}

func (f *fixture) addAddress() *models.Address {
	record := &models.Address{ID: uuid.New(), UserID: f.userID, FullName: "Ayesha Khan", Phone: "9876543210",
		AddressLine1: "12 Rose Garden Lane", City: "Hyderabad", State: "Telangana", Pincode: "500001"}
	f.addresses.addresses[record.ID] = record
	return record
}

func (f *fixture) fillCart() {
	f.carts.snapshots[f.userID] = cart.NewSnapshot([]cart.Line{
		{ProductID: uuid.New(), Name: "Oud Royale", UnitPricePaise: 49900, Quantity: 1},
	}, 0)
}

func strptr(v string) *string { return &v }

func TestBeginWithoutPhoneStartsAtContact(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.Begin(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepContact, session.Step)
	assert.Empty(t, session.Phone)
}

func TestBeginWithPhoneSkipsContact(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))

	session, err := f.svc.Begin(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepAddress, session.Step)
	assert.Equal(t, "9876543210", session.Phone)
}

func TestBeginIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SubmitContact(ctx, f.userID, "9876543210")
	require.NoError(t, err)

	session, err := f.svc.Begin(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepAddress, session.Step)
	assert.Equal(t, "9876543210", session.Phone)
}

func TestSubmitContactValidatesPhone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, phone := range []string{"", "12345", "98765432101", "98765abcde"} {
		_, err := f.svc.SubmitContact(ctx, f.userID, phone)
		var appErr *pkgerrors.Error
		require.ErrorAs(t, err, &appErr, "phone %q", phone)
		assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	}

	// session never advanced
	session, err := f.svc.Begin(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepContact, session.Step)
}

func TestSubmitContactAfterContactStepRejected(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))

	_, err := f.svc.SubmitContact(context.Background(), f.userID, "9123456789")

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestSelectAddressAdvancesToPayment(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()

	session, err := f.svc.SelectAddress(context.Background(), f.userID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepPayment, session.Step)
	require.NotNil(t, session.AddressID)
	assert.Equal(t, record.ID, *session.AddressID)
}

func TestSelectAddressRejectsForeignAddress(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	foreign := &models.Address{ID: uuid.New(), UserID: uuid.New()}
	f.addresses.addresses[foreign.ID] = foreign

	_, err := f.svc.SelectAddress(context.Background(), f.userID, foreign.ID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestSelectAddressBeforeContactRejected(t *testing.T) {
	f := newFixture(t, nil)
	record := f.addAddress()

	_, err := f.svc.SelectAddress(context.Background(), f.userID, record.ID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestBackFromPaymentReturnsToAddress(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()
	ctx := context.Background()

	_, err := f.svc.SelectAddress(ctx, f.userID, record.ID)
	require.NoError(t, err)

	session, err := f.svc.Back(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepAddress, session.Step)
}

func TestBackFromAddressRejected(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	_, err := f.svc.Begin(context.Background(), f.userID)
	require.NoError(t, err)

	_, err = f.svc.Back(context.Background(), f.userID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestEnsureReadyHappyPath(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()
	f.fillCart()
	ctx := context.Background()

	_, err := f.svc.SelectAddress(ctx, f.userID, record.ID)
	require.NoError(t, err)

	session, addr, err := f.svc.EnsureReady(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepPayment, session.Step)
	assert.Equal(t, record.ID, addr.ID)
}

func TestEnsureReadyEmptyCartRejected(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()
	ctx := context.Background()

	_, err := f.svc.SelectAddress(ctx, f.userID, record.ID)
	require.NoError(t, err)

	_, _, err = f.svc.EnsureReady(ctx, f.userID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestEnsureReadyDeletedAddressRejected(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()
	f.fillCart()
	ctx := context.Background()

	_, err := f.svc.SelectAddress(ctx, f.userID, record.ID)
	require.NoError(t, err)

	delete(f.addresses.addresses, record.ID)

	_, _, err = f.svc.EnsureReady(ctx, f.userID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestEnsureReadyWithoutSessionRejected(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))

	_, _, err := f.svc.EnsureReady(context.Background(), f.userID)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCompleteClearsSession(t *testing.T) {
	f := newFixture(t, strptr("9876543210"))
	record := f.addAddress()
	ctx := context.Background()

	_, err := f.svc.SelectAddress(ctx, f.userID, record.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Complete(ctx, f.userID))

	session, err := f.svc.Begin(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStepAddress, session.Step)
	assert.Nil(t, session.AddressID)
}
