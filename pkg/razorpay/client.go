package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rzp "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"

	"github.com/attarco/attar-backend/pkg/config"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errKeyRequired    = errors.New("razorpay key id is required")
	errSecretRequired = errors.New("razorpay key secret is required")
	errInvalidEnv     = fmt.Errorf("razorpay environment must be %q or %q", testEnv, liveEnv)
	errLoggerRequired = errors.New("razorpay logger is required")
)

// orderCreator is the slice of the SDK surface the wrapper depends on.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client exposes Razorpay primitives with centralized auth, logging and error mapping.
type Client struct {
	orders      orderCreator
	keyID       string
	keySecret   string
	environment string
	logger      *logger.Logger
}

// OrderCreateParams carries the fields for a gateway-side payment order.
type OrderCreateParams struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]any
}

// GatewayOrder is the gateway's view of a created payment order.
type GatewayOrder struct {
	ID          string
	AmountPaise int64
	Currency    string
}

// VerifyParams carries the client-side callback fields checked during verification.
type VerifyParams struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errSecretRequired
	}

	sdk := rzp.NewClient(keyID, keySecret)

	c := &Client{
		orders:      sdk.Order,
		keyID:       keyID,
		keySecret:   keySecret,
		environment: env,
		logger:      logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key the hosted checkout UI is opened with.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Environment reports the normalized Razorpay environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateOrder creates a gateway-side payment order. Amount is in paise.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*GatewayOrder, error) {
	if c == nil || c.orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client unavailable")
	}
	if params.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway amount must be positive")
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "INR"
	}

	data := map[string]interface{}{
		"amount":   params.AmountPaise,
		"currency": currency,
	}
	if params.Receipt != "" {
		data["receipt"] = params.Receipt
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"amount_paise": params.AmountPaise,
		"currency":     currency,
		"receipt":      params.Receipt,
	})

	body, err := c.orders.Create(data, nil)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create gateway order")
	}

	order := &GatewayOrder{
		ID:          stringField(body, "id"),
		AmountPaise: intField(body, "amount"),
		Currency:    stringField(body, "currency"),
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway order id missing in response")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"gateway_order_id": order.ID,
		"amount_paise":     order.AmountPaise,
	})
	return order, nil
}

// VerifySignature checks the HMAC signature returned by the hosted checkout callback.
func (c *Client) VerifySignature(ctx context.Context, params VerifyParams) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "razorpay client unavailable")
	}
	if params.GatewayOrderID == "" || params.GatewayPaymentID == "" || params.Signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id, order id and signature are required")
	}

	attributes := map[string]interface{}{
		"razorpay_order_id":   params.GatewayOrderID,
		"razorpay_payment_id": params.GatewayPaymentID,
	}
	if !rzputils.VerifyPaymentSignature(attributes, params.Signature, c.keySecret) {
		c.log(ctx, "error", "verify_signature", map[string]any{
			"gateway_order_id":   params.GatewayOrderID,
			"gateway_payment_id": params.GatewayPaymentID,
		})
		return pkgerrors.New(pkgerrors.CodeGateway, "payment signature verification failed")
	}

	c.log(ctx, "response", "verify_signature", map[string]any{
		"gateway_order_id": params.GatewayOrderID,
		"verified":         true,
	})
	return nil
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	entry := map[string]any{
		"gateway":   "razorpay",
		"operation": operation,
	}
	for k, v := range fields {
		entry[k] = v
	}
	ctx = c.logger.WithFields(ctx, entry)
	switch phase {
	case "error":
		c.logger.Warn(ctx, "razorpay call failed")
	default:
		c.logger.Info(ctx, "razorpay "+phase)
	}
}

func normalizeEnv(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case testEnv:
		return testEnv, nil
	case liveEnv:
		return liveEnv, nil
	default:
		return "", errInvalidEnv
	}
}

func stringField(body map[string]interface{}, key string) string {
	if body == nil {
		return ""
	}
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func intField(body map[string]interface{}, key string) int64 {
	if body == nil {
		return 0
	}
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
