package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutation and sync behavior.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	merges    prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_read_fallbacks_total",
		Help: "Cart reads that fell back to the guest store.",
	}, []string{"reason"})
	merges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_login_merges_total",
		Help: "Guest-to-server cart merges performed on login.",
	})
	reg.MustRegister(mutations, fallbacks, merges)
	return &CartMetrics{
		mutations: mutations,
		fallbacks: fallbacks,
		merges:    merges,
	}
}

// IncMutation counts one cart mutation.
func (c *CartMetrics) IncMutation(op, outcome string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncFallback counts one read served from the guest store.
func (c *CartMetrics) IncFallback(reason string) {
	if c == nil || c.fallbacks == nil {
		return
	}
	c.fallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncMerge counts one login merge.
func (c *CartMetrics) IncMerge() {
	if c == nil || c.merges == nil {
		return
	}
	c.merges.Inc()
}

// CheckoutMetrics records order creation and payment settlement.
type CheckoutMetrics struct {
	orders   *prometheus.CounterVec
	verified *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created by payment method.",
	}, []string{"method"})
	verified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Gateway verification results.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_create_duration_seconds",
		Help:    "Duration of order creation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(orders, verified, duration)
	return &CheckoutMetrics{
		orders:   orders,
		verified: verified,
		duration: duration,
	}
}

// IncOrder counts one created order.
func (c *CheckoutMetrics) IncOrder(method string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncVerified counts one gateway verification attempt.
func (c *CheckoutMetrics) IncVerified(outcome string) {
	if c == nil || c.verified == nil {
		return
	}
	c.verified.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderCreate records the latency of one order creation.
func (c *CheckoutMetrics) ObserveOrderCreate(method string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(method)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
