package cart

import (
	"github.com/google/uuid"
)

// ApplyAdd returns lines with quantity added to the product's line,
// appending a new line when the product is not present. Insertion order
// of existing lines is preserved.
func ApplyAdd(lines []Line, item Line, quantity int) []Line {
	if quantity < 1 {
		return lines
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	for i := range out {
		if out[i].ProductID == item.ProductID {
			out[i].Quantity += quantity
			return out
		}
	}
	item.Quantity = quantity
	return append(out, item)
}

// ApplySetQuantity replaces the product's quantity. Quantities below one
// and unknown products leave the lines unchanged.
func ApplySetQuantity(lines []Line, productID uuid.UUID, quantity int) []Line {
	if quantity < 1 {
		return lines
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	for i := range out {
		if out[i].ProductID == productID {
			out[i].Quantity = quantity
			break
		}
	}
	return out
}

// ApplyRemove drops the product's line. Removing an absent product is a
// no-op.
func ApplyRemove(lines []Line, productID uuid.UUID) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == productID {
			continue
		}
		out = append(out, line)
	}
	return out
}
