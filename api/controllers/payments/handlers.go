package payments

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/attarco/attar-backend/api/middleware"
	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/api/validators"
	paymentssvc "github.com/attarco/attar-backend/internal/payments"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

type createRequest struct {
	OrderID uuid.UUID `json:"orderId" validate:"required"`
}

type verifyRequest struct {
	OrderID          uuid.UUID `json:"orderId" validate:"required"`
	GatewayOrderID   string    `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string    `json:"razorpay_payment_id" validate:"required"`
	Signature        string    `json:"razorpay_signature" validate:"required"`
}

// Create opens gateway settlement for a pending order and returns
// everything the hosted checkout modal needs.
func Create(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.CreateGatewayOrder(r.Context(), userID, payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"key_id": result.KeyID,
			"order": map[string]any{
				"id":          result.GatewayOrderID,
				"totalAmount": result.AmountPaise,
				"currency":    result.Currency,
			},
			"user": map[string]any{
				"name":    result.Prefill.Name,
				"email":   result.Prefill.Email,
				"contact": result.Prefill.Contact,
			},
		})
	}
}

// Verify checks the gateway callback signature and settles the order.
func Verify(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Verify(r.Context(), userID, paymentssvc.VerifyInput{
			OrderID:          payload.OrderID,
			GatewayOrderID:   payload.GatewayOrderID,
			GatewayPaymentID: payload.GatewayPaymentID,
			Signature:        payload.Signature,
			SessionID:        middleware.SessionIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order": map[string]any{
				"id":     record.ID,
				"status": record.Status,
				"isPaid": record.IsPaid,
			},
		})
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
