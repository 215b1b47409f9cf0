package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/api/validators"
	cartcore "github.com/attarco/attar-backend/internal/cart"
	"github.com/attarco/attar-backend/internal/cartsync"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

// Syncer is the cart surface the handlers route through: every read and
// mutation goes through the coordinator so the dual-store rules hold.
type Syncer interface {
	Read(ctx context.Context, id cartsync.Identity) (cartcore.Snapshot, error)
	Add(ctx context.Context, id cartsync.Identity, productID uuid.UUID, quantity int) (cartcore.Snapshot, error)
	SetQuantity(ctx context.Context, id cartsync.Identity, productID uuid.UUID, quantity int) (cartcore.Snapshot, error)
	Remove(ctx context.Context, id cartsync.Identity, productID uuid.UUID) (cartcore.Snapshot, error)
	Clear(ctx context.Context, id cartsync.Identity) error
	OnLogin(ctx context.Context, userID uuid.UUID, sessionID string) (cartcore.Snapshot, error)
}

type mutateRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

func cartView(snap cartcore.Snapshot) map[string]any {
	items := make([]map[string]any, 0, len(snap.Items))
	for _, line := range snap.Items {
		items = append(items, map[string]any{
			"productId": line.ProductID,
			"name":      line.Name,
			"price":     line.UnitPricePaise,
			"image":     line.ImageRef,
			"quantity":  line.Quantity,
		})
	}
	return map[string]any{
		"cart": map[string]any{
			"items":    items,
			"subtotal": snap.SubtotalPaise,
			"revision": snap.Revision,
		},
	}
}

// Fetch returns the effective cart for the caller's identity.
func Fetch(svc Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Read(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartView(snap))
	}
}

// Add merges a product line into the cart, summing quantities on repeat adds.
func Add(svc Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload mutateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Add(r.Context(), id, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartView(snap))
	}
}

// SetQuantity pins a line to an exact quantity.
func SetQuantity(svc Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload mutateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.SetQuantity(r.Context(), id, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartView(snap))
	}
}

// Remove drops one line when productId is given, or the whole cart without it.
func Remove(svc Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := identityFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("productId"))
		if raw == "" {
			if err := svc.Clear(r.Context(), id); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, cartView(cartcore.Snapshot{Items: []cartcore.Line{}}))
			return
		}

		productID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid productId"))
			return
		}

		snap, err := svc.Remove(r.Context(), id, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartView(snap))
	}
}

// Sync merges the guest cart into the user cart after login. Without a
// session header there is nothing to merge and the server cart is returned.
func Sync(svc Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		var snap cartcore.Snapshot
		if sessionID == "" {
			snap, err = svc.Read(r.Context(), cartsync.Identity{UserID: userID})
		} else {
			snap, err = svc.OnLogin(r.Context(), userID, sessionID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cartView(snap))
	}
}

func identityFromRequest(r *http.Request) (cartsync.Identity, error) {
	id := cartsync.Identity{SessionID: middleware.SessionIDFromContext(r.Context())}
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cartsync.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		id.UserID = userID
	}
	if !id.Authenticated() && id.SessionID == "" {
		return cartsync.Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "session id or login required")
	}
	return id, nil
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
