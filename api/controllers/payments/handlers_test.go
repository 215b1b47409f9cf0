package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attarco/attar-backend/api/middleware"
	paymentssvc "github.com/attarco/attar-backend/internal/payments"
	"github.com/attarco/attar-backend/pkg/db/models"
	"github.com/attarco/attar-backend/pkg/enums"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
)

type stubService struct {
	result *paymentssvc.CreateResult
	record *models.Order
	err    error

	lastUserID uuid.UUID
	lastOrder  uuid.UUID
	lastVerify paymentssvc.VerifyInput
}

func (s *stubService) CreateGatewayOrder(_ context.Context, userID, orderID uuid.UUID) (*paymentssvc.CreateResult, error) {
	s.lastUserID, s.lastOrder = userID, orderID
	return s.result, s.err
}

func (s *stubService) Verify(_ context.Context, userID uuid.UUID, input paymentssvc.VerifyInput) (*models.Order, error) {
	s.lastUserID, s.lastVerify = userID, input
	return s.record, s.err
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCreateReturnsModalPayload(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{result: &paymentssvc.CreateResult{
		KeyID:          "rzp_test_key",
		GatewayOrderID: "order_rzp_001",
		AmountPaise:    54900,
		Currency:       enums.CurrencyINR,
		Prefill:        paymentssvc.CheckoutPrefill{Name: "Asha Nair", Email: "asha@example.com", Contact: "9876543210"},
	}}
	rec := httptest.NewRecorder()

	Create(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/create", `{"orderId":"`+orderID.String()+`"}`, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orderID, svc.lastOrder)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rzp_test_key", body["key_id"])

	order := body["order"].(map[string]any)
	assert.Equal(t, "order_rzp_001", order["id"])
	assert.Equal(t, float64(54900), order["totalAmount"])
	assert.Equal(t, "INR", order["currency"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "9876543210", user["contact"])
}

func TestCreateRequiresOrderID(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()

	Create(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/create", `{}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePropagatesGatewayError(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeGateway, "gateway order create failed")}
	rec := httptest.NewRecorder()

	Create(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/create", `{"orderId":"`+uuid.NewString()+`"}`, uuid.New()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func verifyBody(orderID uuid.UUID) string {
	return `{"orderId":"` + orderID.String() + `","razorpay_order_id":"order_rzp_001","razorpay_payment_id":"pay_001","razorpay_signature":"sig"}`
}

func TestVerifySettlesOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{record: &models.Order{
		ID:     orderID,
		Status: enums.OrderStatusProcessing,
		IsPaid: true,
	}}
	rec := httptest.NewRecorder()

	Verify(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/verify", verifyBody(orderID), uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order_rzp_001", svc.lastVerify.GatewayOrderID)
	assert.Equal(t, "pay_001", svc.lastVerify.GatewayPaymentID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	order := body["order"].(map[string]any)
	assert.Equal(t, true, order["isPaid"])
}

func TestVerifyRequiresCallbackFields(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()

	Verify(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/verify", `{"orderId":"`+uuid.NewString()+`"}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPropagatesSignatureMismatch(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeGateway, "signature mismatch")}
	rec := httptest.NewRecorder()

	Verify(svc, nil)(rec, authedRequest(http.MethodPost, "/api/payment/razorpay/verify", verifyBody(uuid.New()), uuid.New()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVerifyRequiresAuth(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()

	Verify(svc, nil)(rec, httptest.NewRequest(http.MethodPost, "/api/payment/razorpay/verify", strings.NewReader(verifyBody(uuid.New()))))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
