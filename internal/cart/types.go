package cart

import (
	"github.com/google/uuid"
)

// Line is one product line in a cart, independent of where the cart lives.
// Identity within a cart is the product id.
type Line struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPricePaise int64     `json:"unit_price_paise"`
	ImageRef       string    `json:"image_ref,omitempty"`
	Quantity       int       `json:"quantity"`
}

// Snapshot is the effective cart a view renders: ordered lines, derived
// subtotal and the current change-signal revision.
type Snapshot struct {
	Items         []Line `json:"items"`
	SubtotalPaise int64  `json:"subtotal_paise"`
	Revision      int64  `json:"revision"`
}

// Empty reports whether the snapshot holds no lines.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Subtotal derives the cart subtotal from its lines.
func Subtotal(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.UnitPricePaise * int64(line.Quantity)
	}
	return total
}

// NewSnapshot builds a snapshot with the subtotal derived from the lines.
func NewSnapshot(lines []Line, revision int64) Snapshot {
	return Snapshot{
		Items:         lines,
		SubtotalPaise: Subtotal(lines),
		Revision:      revision,
	}
}
