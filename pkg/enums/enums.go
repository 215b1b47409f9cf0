package enums

// CartStatus tracks the lifecycle of a server cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

// OrderStatus follows the order lifecycle after creation.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCOD      PaymentMethod = "cod"
	PaymentMethodRazorpay PaymentMethod = "razorpay"
)

// Valid reports whether the payment method is one the storefront accepts.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodRazorpay:
		return true
	}
	return false
}

// PaymentStatus tracks gateway settlement progress for an order.
type PaymentStatus string

const (
	PaymentStatusUnpaid     PaymentStatus = "unpaid"
	PaymentStatusCODPending PaymentStatus = "cod_pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
)

// CheckoutStep names the states of the checkout flow.
type CheckoutStep string

const (
	CheckoutStepContact CheckoutStep = "contact"
	CheckoutStepAddress CheckoutStep = "address"
	CheckoutStepPayment CheckoutStep = "payment"
)

// Currency is the ISO currency code carried on money amounts.
type Currency string

const CurrencyINR Currency = "INR"
