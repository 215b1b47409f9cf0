package addresses

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/api/validators"
	"github.com/attarco/attar-backend/internal/address"
	"github.com/attarco/attar-backend/pkg/db/models"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

func addressView(record *models.Address) map[string]any {
	view := map[string]any{
		"id":           record.ID,
		"fullName":     record.FullName,
		"phone":        record.Phone,
		"addressLine1": record.AddressLine1,
		"city":         record.City,
		"state":        record.State,
		"pincode":      record.Pincode,
		"isDefault":    record.IsDefault,
		"createdAt":    record.CreatedAt,
	}
	if record.AddressLine2 != nil {
		view["addressLine2"] = *record.AddressLine2
	}
	return view
}

// List returns the caller's saved addresses, default first.
func List(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]map[string]any, 0, len(records))
		for i := range records {
			views = append(views, addressView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"addresses": views})
	}
}

// Create saves a new address for the caller.
func Create(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Create(r.Context(), userID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"address": addressView(record)})
	}
}

// Update rewrites one of the caller's addresses.
func Update(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := uuid.Parse(chi.URLParam(r, "addressId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid address id"))
			return
		}

		var payload address.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Update(r.Context(), userID, addressID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"address": addressView(record)})
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
