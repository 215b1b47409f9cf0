package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id uuid.UUID, name string, price int64, qty int) Line {
	return Line{ProductID: id, Name: name, UnitPricePaise: price, Quantity: qty}
}

func TestApplyAddNewProductAppends(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	out := ApplyAdd(lines, line(b, "Rose Attar", 29900, 0), 3)

	require.Len(t, out, 2)
	assert.Equal(t, b, out[1].ProductID)
	assert.Equal(t, 3, out[1].Quantity)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestApplyAddExistingProductSumsQuantity(t *testing.T) {
	a := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	out := ApplyAdd(lines, line(a, "Oud Royale", 49900, 0), 1)

	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Quantity)
}

func TestApplyAddRejectsQuantityBelowOne(t *testing.T) {
	a := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	assert.Equal(t, lines, ApplyAdd(lines, line(uuid.New(), "x", 100, 0), 0))
	assert.Equal(t, lines, ApplyAdd(lines, line(uuid.New(), "x", 100, 0), -4))
}

func TestApplySetQuantity(t *testing.T) {
	a := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	out := ApplySetQuantity(lines, a, 7)
	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0].Quantity)
}

func TestApplySetQuantityBelowOneIsNoOp(t *testing.T) {
	a := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	assert.Equal(t, lines, ApplySetQuantity(lines, a, 0))
	assert.Equal(t, lines, ApplySetQuantity(lines, a, -1))
}

func TestApplySetQuantityUnknownProductIsNoOp(t *testing.T) {
	a := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2)}

	assert.Equal(t, lines, ApplySetQuantity(lines, uuid.New(), 5))
}

func TestApplyRemove(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2), line(b, "Rose Attar", 29900, 1)}

	out := ApplyRemove(lines, a)
	require.Len(t, out, 1)
	assert.Equal(t, b, out[0].ProductID)

	assert.Equal(t, out, ApplyRemove(out, uuid.New()))
}

func TestSubtotal(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	lines := []Line{line(a, "Oud Royale", 49900, 2), line(b, "Rose Attar", 29900, 3)}

	assert.Equal(t, int64(2*49900+3*29900), Subtotal(lines))
	assert.Equal(t, int64(0), Subtotal(nil))
}
