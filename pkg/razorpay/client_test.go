package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/attarco/attar-backend/pkg/config"
	"github.com/attarco/attar-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	response map[string]interface{}
	err      error
	lastData map[string]interface{}
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.lastData = data
	return s.response, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_x", KeySecret: "s"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.RazorpayConfig{KeySecret: "s"}, testLogger())
	require.ErrorIs(t, err, errKeyRequired)

	_, err = NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_x"}, testLogger())
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.RazorpayConfig{KeyID: "k", KeySecret: "s", Env: "staging"}, testLogger())
	require.ErrorIs(t, err, errInvalidEnv)

	client, err := NewClient(ctx, config.RazorpayConfig{KeyID: "rzp_test_x", KeySecret: "s"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "rzp_test_x", client.KeyID())
}

func TestCreateOrderMapsResponse(t *testing.T) {
	orders := &stubOrders{response: map[string]interface{}{
		"id":       "order_abc",
		"amount":   float64(45000),
		"currency": "INR",
	}}
	client := &Client{orders: orders, keyID: "k", keySecret: "s", environment: testEnv, logger: testLogger()}

	order, err := client.CreateOrder(context.Background(), OrderCreateParams{
		AmountPaise: 45000,
		Receipt:     "ord-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(45000), order.AmountPaise)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, int64(45000), orders.lastData["amount"])
	assert.Equal(t, "INR", orders.lastData["currency"])
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client := &Client{orders: &stubOrders{}, logger: testLogger()}
	_, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 0})
	require.Error(t, err)
}

func TestCreateOrderWrapsGatewayFailure(t *testing.T) {
	orders := &stubOrders{err: errors.New("BAD_REQUEST_ERROR")}
	client := &Client{orders: orders, logger: testLogger()}
	_, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 100})
	require.Error(t, err)
}

func TestCreateOrderRequiresIDInResponse(t *testing.T) {
	orders := &stubOrders{response: map[string]interface{}{"amount": float64(100)}}
	client := &Client{orders: orders, logger: testLogger()}
	_, err := client.CreateOrder(context.Background(), OrderCreateParams{AmountPaise: 100})
	require.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	secret := "shhh"
	client := &Client{keySecret: secret, logger: testLogger()}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("order_abc|pay_xyz"))
	signature := hex.EncodeToString(mac.Sum(nil))

	err := client.VerifySignature(context.Background(), VerifyParams{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        signature,
	})
	require.NoError(t, err)

	err = client.VerifySignature(context.Background(), VerifyParams{
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_xyz",
		Signature:        "deadbeef",
	})
	require.Error(t, err)

	err = client.VerifySignature(context.Background(), VerifyParams{})
	require.Error(t, err)
}
