package orders

import (
	"github.com/shopspring/decimal"

	"github.com/attarco/attar-backend/internal/cart"
)

// All money moves through the system in paise.
const (
	// FreeShippingThresholdPaise is the subtotal at which shipping becomes
	// free (₹500). The boundary itself ships free.
	FreeShippingThresholdPaise int64 = 50000
	// FlatShippingPaise is charged below the threshold (₹50).
	FlatShippingPaise int64 = 5000
)

// Totals is the fully server-derived price breakdown of an order. Client
// supplied amounts are never read.
type Totals struct {
	ItemsPaise    int64
	ShippingPaise int64
	TaxPaise      int64
	TotalPaise    int64
}

// ComputeTotals prices the lines from their catalog unit prices and the
// shipping rule. Tax is carried as an explicit zero until the storefront
// charges it.
func ComputeTotals(lines []cart.Line) Totals {
	items := decimal.Zero
	for _, line := range lines {
		lineTotal := decimal.NewFromInt(line.UnitPricePaise).Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = items.Add(lineTotal)
	}

	shipping := decimal.Zero
	if items.LessThan(decimal.NewFromInt(FreeShippingThresholdPaise)) {
		shipping = decimal.NewFromInt(FlatShippingPaise)
	}

	tax := decimal.Zero
	total := items.Add(shipping).Add(tax)

	return Totals{
		ItemsPaise:    items.IntPart(),
		ShippingPaise: shipping.IntPart(),
		TaxPaise:      tax.IntPart(),
		TotalPaise:    total.IntPart(),
	}
}

// Rupees converts a paise amount to its rupee value for display.
func Rupees(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}
