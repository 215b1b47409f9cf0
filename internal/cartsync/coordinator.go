package cartsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/attarco/attar-backend/internal/cart"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/attarco/attar-backend/pkg/metrics"
)

// Identity names whose cart an operation targets: the authenticated user
// when UserID is set, otherwise the anonymous browser session.
type Identity struct {
	UserID    uuid.UUID
	SessionID string
}

// Authenticated reports whether the identity carries a signed-in user.
func (id Identity) Authenticated() bool {
	return id.UserID != uuid.Nil
}

// SignalKey returns the revision key for this identity.
func (id Identity) SignalKey() string {
	if id.Authenticated() {
		return "user:" + id.UserID.String()
	}
	return "session:" + id.SessionID
}

func (id Identity) validate() error {
	if !id.Authenticated() && id.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "a user or session identity is required")
	}
	return nil
}

type serverCart interface {
	Get(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (cart.Snapshot, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (cart.Snapshot, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (cart.Snapshot, error)
	Replace(ctx context.Context, userID uuid.UUID, lines []cart.Line) (cart.Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type guestStore interface {
	Load(ctx context.Context, sessionID string) ([]cart.Line, error)
	Save(ctx context.Context, sessionID string, lines []cart.Line) error
	Delete(ctx context.Context, sessionID string) error
}

type changeSignal interface {
	Bump(ctx context.Context, identity string) (int64, error)
	Current(ctx context.Context, identity string) (int64, error)
}

// Coordinator routes cart operations to the right store. Signed-in users
// hit the database as the source of truth with the session copy kept as
// a read fallback; anonymous visitors hit Redis only. Every successful
// change bumps the identity's revision so other open views refetch.
type Coordinator struct {
	server   serverCart
	guest    guestStore
	signal   changeSignal
	products cart.ProductLoader
	metrics  *metrics.CartMetrics
	logger   *logger.Logger
}

// NewCoordinator builds the cart coordinator.
func NewCoordinator(server serverCart, guest guestStore, signal changeSignal, products cart.ProductLoader, cartMetrics *metrics.CartMetrics, logg *logger.Logger) (*Coordinator, error) {
	if server == nil {
		return nil, fmt.Errorf("server cart service required")
	}
	if guest == nil {
		return nil, fmt.Errorf("guest store required")
	}
	if signal == nil {
		return nil, fmt.Errorf("change signal required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Coordinator{
		server:   server,
		guest:    guest,
		signal:   signal,
		products: products,
		metrics:  cartMetrics,
		logger:   logg,
	}, nil
}

// Read returns the identity's effective cart. For signed-in users the
// database is authoritative; when it cannot be read, or comes back empty
// while a session copy still has items, the copy is served instead.
func (c *Coordinator) Read(ctx context.Context, id Identity) (cart.Snapshot, error) {
	if err := id.validate(); err != nil {
		return cart.Snapshot{}, err
	}

	if !id.Authenticated() {
		lines, err := c.guest.Load(ctx, id.SessionID)
		if err != nil {
			return cart.Snapshot{}, err
		}
		return c.withRevision(ctx, id, cart.NewSnapshot(lines, 0)), nil
	}

	snap, err := c.server.Get(ctx, id.UserID)
	if err == nil && len(snap.Items) > 0 {
		return c.withRevision(ctx, id, snap), nil
	}
	if id.SessionID == "" {
		if err != nil {
			return cart.Snapshot{}, err
		}
		return c.withRevision(ctx, id, snap), nil
	}

	lines, fallbackErr := c.guest.Load(ctx, id.SessionID)
	switch {
	case fallbackErr != nil && err != nil:
		return cart.Snapshot{}, multierr.Append(err, fallbackErr)
	case fallbackErr != nil:
		c.logger.Error(ctx, "loading session cart copy failed", fallbackErr)
		return c.withRevision(ctx, id, snap), nil
	case len(lines) == 0 && err == nil:
		return c.withRevision(ctx, id, snap), nil
	}

	reason := "server_empty"
	if err != nil {
		reason = "server_unavailable"
		c.logger.Error(ctx, "serving cart from session fallback", err)
	}
	c.metrics.IncFallback(reason)
	return c.withRevision(ctx, id, cart.NewSnapshot(lines, 0)), nil
}

// Add puts quantity of a product into the identity's cart.
func (c *Coordinator) Add(ctx context.Context, id Identity, productID uuid.UUID, quantity int) (cart.Snapshot, error) {
	return c.mutate(ctx, id, "add",
		func() (cart.Snapshot, error) {
			return c.server.Add(ctx, id.UserID, productID, quantity)
		},
		func(lines []cart.Line) ([]cart.Line, error) {
			if quantity < 1 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
			}
			item, err := c.catalogLine(ctx, productID)
			if err != nil {
				return nil, err
			}
			return cart.ApplyAdd(lines, item, quantity), nil
		})
}

// SetQuantity replaces a line's quantity. Quantities below one leave the
// cart unchanged.
func (c *Coordinator) SetQuantity(ctx context.Context, id Identity, productID uuid.UUID, quantity int) (cart.Snapshot, error) {
	return c.mutate(ctx, id, "set_quantity",
		func() (cart.Snapshot, error) {
			return c.server.SetQuantity(ctx, id.UserID, productID, quantity)
		},
		func(lines []cart.Line) ([]cart.Line, error) {
			return cart.ApplySetQuantity(lines, productID, quantity), nil
		})
}

// Remove drops a product from the identity's cart.
func (c *Coordinator) Remove(ctx context.Context, id Identity, productID uuid.UUID) (cart.Snapshot, error) {
	return c.mutate(ctx, id, "remove",
		func() (cart.Snapshot, error) {
			return c.server.Remove(ctx, id.UserID, productID)
		},
		func(lines []cart.Line) ([]cart.Line, error) {
			return cart.ApplyRemove(lines, productID), nil
		})
}

// Clear empties the identity's cart everywhere it is stored.
func (c *Coordinator) Clear(ctx context.Context, id Identity) error {
	if err := id.validate(); err != nil {
		return err
	}

	if id.Authenticated() {
		if err := c.server.Clear(ctx, id.UserID); err != nil {
			c.metrics.IncMutation("clear", "error")
			return err
		}
	}
	if id.SessionID != "" {
		if err := c.guest.Delete(ctx, id.SessionID); err != nil {
			if !id.Authenticated() {
				c.metrics.IncMutation("clear", "error")
				return err
			}
			c.logger.Error(ctx, "clearing session cart copy failed", err)
		}
	}
	c.metrics.IncMutation("clear", "ok")
	c.bump(ctx, id)
	return nil
}

// OnLogin folds the visitor's session cart into the user's server cart.
// Overlapping products sum their quantities, everything else is kept.
// The merged result is written back to the session copy so the fallback
// path serves the same cart the server does.
func (c *Coordinator) OnLogin(ctx context.Context, userID uuid.UUID, sessionID string) (cart.Snapshot, error) {
	if userID == uuid.Nil {
		return cart.Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	id := Identity{UserID: userID, SessionID: sessionID}

	guestLines, err := c.guest.Load(ctx, sessionID)
	if err != nil {
		c.logger.Error(ctx, "loading session cart for merge failed", err)
		guestLines = nil
	}

	snap, err := c.server.Get(ctx, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}

	merged := snap
	if len(guestLines) > 0 {
		merged, err = c.server.Replace(ctx, userID, cart.MergeLines(snap.Items, guestLines))
		if err != nil {
			return cart.Snapshot{}, err
		}
		c.metrics.IncMerge()
	}
	if sessionID != "" {
		if err := c.guest.Save(ctx, sessionID, merged.Items); err != nil {
			c.logger.Error(ctx, "writing merged cart back to session failed", err)
		}
	}
	c.bump(ctx, id)
	return c.withRevision(ctx, id, merged), nil
}

// OnLogout stops treating the server cart as authoritative. The session
// copy keeps whatever was last synced and carries on as the anonymous
// cart; the server cart waits for the next sign-in.
func (c *Coordinator) OnLogout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	c.bump(ctx, Identity{SessionID: sessionID})
	return nil
}

// OnOrderSettled runs after an order takes ownership of the cart, cash
// on delivery at creation and gateway orders at verify. The server cart
// was already cleared in the order transaction; here the session copy is
// dropped so the fallback path cannot resurrect paid-for items, and the
// revisions are bumped so open views refetch.
func (c *Coordinator) OnOrderSettled(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var err error
	if sessionID != "" {
		if delErr := c.guest.Delete(ctx, sessionID); delErr != nil {
			err = multierr.Append(err, delErr)
		}
		c.bump(ctx, Identity{SessionID: sessionID})
	}
	c.bump(ctx, Identity{UserID: userID, SessionID: sessionID})
	return err
}

func (c *Coordinator) mutate(ctx context.Context, id Identity, op string, onServer func() (cart.Snapshot, error), onGuest func([]cart.Line) ([]cart.Line, error)) (cart.Snapshot, error) {
	if err := id.validate(); err != nil {
		return cart.Snapshot{}, err
	}

	if !id.Authenticated() {
		lines, err := c.guest.Load(ctx, id.SessionID)
		if err != nil {
			c.metrics.IncMutation(op, "error")
			return cart.Snapshot{}, err
		}
		next, err := onGuest(lines)
		if err != nil {
			c.metrics.IncMutation(op, "error")
			return cart.Snapshot{}, err
		}
		if err := c.guest.Save(ctx, id.SessionID, next); err != nil {
			c.metrics.IncMutation(op, "error")
			return cart.Snapshot{}, err
		}
		c.metrics.IncMutation(op, "ok")
		c.bump(ctx, id)
		return c.withRevision(ctx, id, cart.NewSnapshot(next, 0)), nil
	}

	snap, err := onServer()
	if err == nil {
		c.metrics.IncMutation(op, "ok")
		// Keep the session copy in step so read fallback stays useful.
		// Mirror failures are logged, not surfaced.
		if id.SessionID != "" {
			if mirrorErr := c.guest.Save(ctx, id.SessionID, snap.Items); mirrorErr != nil {
				c.logger.Error(ctx, "mirroring cart to session failed", mirrorErr)
			}
		}
		c.bump(ctx, id)
		return c.withRevision(ctx, id, snap), nil
	}

	if id.SessionID == "" {
		c.metrics.IncMutation(op, "error")
		return cart.Snapshot{}, err
	}

	// The server is down but the shopper keeps their cart: the change is
	// applied to the session copy and the server error is swallowed. The
	// next successful server call reconciles.
	lines, loadErr := c.guest.Load(ctx, id.SessionID)
	if loadErr != nil {
		c.metrics.IncMutation(op, "error")
		return cart.Snapshot{}, multierr.Append(err, loadErr)
	}
	next, applyErr := onGuest(lines)
	if applyErr != nil {
		c.metrics.IncMutation(op, "error")
		return cart.Snapshot{}, applyErr
	}
	if saveErr := c.guest.Save(ctx, id.SessionID, next); saveErr != nil {
		c.metrics.IncMutation(op, "error")
		return cart.Snapshot{}, multierr.Append(err, saveErr)
	}
	c.metrics.IncMutation(op, "fallback")
	c.metrics.IncFallback("server_unavailable")
	c.logger.Error(ctx, "applied cart change to session copy after server failure", err)
	c.bump(ctx, id)
	return c.withRevision(ctx, id, cart.NewSnapshot(next, 0)), nil
}

func (c *Coordinator) bump(ctx context.Context, id Identity) {
	if _, err := c.signal.Bump(ctx, id.SignalKey()); err != nil {
		c.logger.Error(ctx, "bumping cart revision failed", err)
	}
}

func (c *Coordinator) withRevision(ctx context.Context, id Identity, snap cart.Snapshot) cart.Snapshot {
	revision, err := c.signal.Current(ctx, id.SignalKey())
	if err != nil {
		c.logger.Error(ctx, "reading cart revision failed", err)
		return snap
	}
	snap.Revision = revision
	return snap
}

func (c *Coordinator) catalogLine(ctx context.Context, productID uuid.UUID) (cart.Line, error) {
	if productID == uuid.Nil {
		return cart.Line{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := c.products.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return cart.Line{}, err
	}
	if !product.IsActive {
		return cart.Line{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return cart.Line{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPricePaise: product.UnitPricePaise,
		ImageRef:       product.ImageRef,
	}, nil
}
