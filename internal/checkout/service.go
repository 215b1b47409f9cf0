package checkout

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type addressLoader interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
}

// Service walks a signed-in shopper through checkout: contact, then
// address, then payment. Progress lives in Redis and every advance is
// validated; a step never moves forward on bad input.
type Service interface {
	Begin(ctx context.Context, userID uuid.UUID) (*Session, error)
	SubmitContact(ctx context.Context, userID uuid.UUID, phone string) (*Session, error)
	SelectAddress(ctx context.Context, userID, addressID uuid.UUID) (*Session, error)
	Back(ctx context.Context, userID uuid.UUID) (*Session, error)
	EnsureReady(ctx context.Context, userID uuid.UUID) (*Session, *models.Address, error)
	Complete(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	sessions  *SessionStore
	users     userLoader
	addresses addressLoader
	carts     cartReader
}

// NewService builds the checkout orchestrator.
func NewService(sessions *SessionStore, users userLoader, addresses addressLoader, carts cartReader) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address loader required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	return &service{sessions: sessions, users: users, addresses: addresses, carts: carts}, nil
}

// Begin returns the in-progress session or starts a new one. Users whose
// account already carries a phone skip the contact step.
func (s *service) Begin(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	session = &Session{Step: enums.CheckoutStepContact}
	if user.Phone != nil && phonePattern.MatchString(*user.Phone) {
		session.Step = enums.CheckoutStepAddress
		session.Phone = *user.Phone
	}
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitContact records the shopper's phone and advances to address
// selection. The phone stays on the session only.
func (s *service) SubmitContact(ctx context.Context, userID uuid.UUID, phone string) (*Session, error) {
	if !phonePattern.MatchString(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone must be 10 digits")
	}
	session, err := s.Begin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Step != enums.CheckoutStepContact {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact step already completed")
	}

	session.Phone = phone
	session.Step = enums.CheckoutStepAddress
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SelectAddress pins a shipping address and advances to payment. The
// address must belong to the shopper.
func (s *service) SelectAddress(ctx context.Context, userID, addressID uuid.UUID) (*Session, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	session, err := s.Begin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Step != enums.CheckoutStepAddress {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address can only be chosen from the address step")
	}

	if _, err := s.addresses.Get(ctx, userID, addressID); err != nil {
		return nil, err
	}

	session.AddressID = &addressID
	session.Step = enums.CheckoutStepPayment
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Back steps from payment to address so the shopper can reselect. No
// other backward move exists; the contact step is not re-entered once a
// phone is on the session.
func (s *service) Back(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Step != enums.CheckoutStepPayment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to go back to")
	}

	session.Step = enums.CheckoutStepAddress
	if err := s.sessions.Save(ctx, userID, session); err != nil {
		return nil, err
	}
	return session, nil
}

// EnsureReady re-validates the session right before order creation: the
// shopper must be at the payment step with a still-existing address and a
// non-empty cart.
func (s *service) EnsureReady(ctx context.Context, userID uuid.UUID) (*Session, *models.Address, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	session, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.Step != enums.CheckoutStepPayment || session.AddressID == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout is not ready for payment")
	}

	record, err := s.addresses.Get(ctx, userID, *session.AddressID)
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if snap.Empty() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return session, record, nil
}

// Complete drops the session after a successful order.
func (s *service) Complete(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.sessions.Delete(ctx, userID)
}
