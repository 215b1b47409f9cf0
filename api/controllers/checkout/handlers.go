package checkout

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/api/validators"
	checkoutsvc "github.com/attarco/attar-backend/internal/checkout"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

type contactRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
}

type addressRequest struct {
	AddressID uuid.UUID `json:"addressId" validate:"required"`
}

func sessionView(session *checkoutsvc.Session) map[string]any {
	view := map[string]any{
		"step": session.Step,
	}
	if session.Phone != "" {
		view["phone"] = session.Phone
	}
	if session.AddressID != nil {
		view["addressId"] = *session.AddressID
	}
	return map[string]any{"checkout": view}
}

// Begin returns the in-progress checkout session, starting one if needed.
func Begin(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Begin(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionView(session))
	}
}

// SubmitContact records the shopper's phone and advances the flow.
func SubmitContact(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload contactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SubmitContact(r.Context(), userID, payload.Phone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionView(session))
	}
}

// SelectAddress pins the shipping address and advances to payment.
func SelectAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SelectAddress(r.Context(), userID, payload.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionView(session))
	}
}

// Back steps from payment back to address selection.
func Back(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Back(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionView(session))
	}
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
