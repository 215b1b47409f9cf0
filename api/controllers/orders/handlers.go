package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/api/validators"
	orderssvc "github.com/attarco/attar-backend/internal/orders"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

type createRequest struct {
	AddressID      uuid.UUID `json:"addressId" validate:"required"`
	PaymentMethod  string    `json:"paymentMethod" validate:"required,oneof=cod razorpay"`
	IdempotencyKey string    `json:"idempotencyKey" validate:"required"`
}

func orderView(record *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, map[string]any{
			"productId": item.ProductID,
			"name":      item.Name,
			"price":     item.UnitPricePaise,
			"image":     item.ImageRef,
			"quantity":  item.Quantity,
			"lineTotal": item.LineTotalPaise,
		})
	}

	view := map[string]any{
		"id":              record.ID,
		"status":          record.Status,
		"paymentMethod":   record.PaymentMethod,
		"isPaid":          record.IsPaid,
		"currency":        record.Currency,
		"itemsPrice":      record.ItemsPricePaise,
		"shippingPrice":   record.ShippingPricePaise,
		"taxPrice":        record.TaxPricePaise,
		"totalAmount":     record.TotalPricePaise,
		"shippingAddress": record.ShippingAddress,
		"items":           items,
		"createdAt":       record.CreatedAt,
	}
	if record.PaidAt != nil {
		view["paidAt"] = *record.PaidAt
	}
	if record.PaymentIntent != nil {
		view["paymentStatus"] = record.PaymentIntent.Status
	}
	return view
}

// Create places an order from the ready checkout session.
func Create(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Create(r.Context(), userID, orderssvc.CreateInput{
			AddressID:      payload.AddressID,
			PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
			IdempotencyKey: payload.IdempotencyKey,
			SessionID:      middleware.SessionIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"order": orderView(record)})
	}
}

// List returns the caller's orders, newest first.
func List(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
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
			views = append(views, orderView(&records[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": views})
	}
}

// Get returns one of the caller's orders.
func Get(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		record, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"order": orderView(record)})
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
