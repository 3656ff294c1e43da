package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Decrement(t *testing.T) {
	p, err := NewProduct(uuid.New(), "Riz 25kg", decimal.NewFromInt(12500), 5)
	require.NoError(t, err)
	assert.Equal(t, "RIZ 25KG", p.NameKey)

	removed, err := p.Decrement(3)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, p.Stock)

	removed, err = p.Decrement(10)
	require.NoError(t, err)
	assert.Equal(t, 2, removed, "clamped at zero")
	assert.Equal(t, 0, p.Stock)

	_, err = p.Decrement(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestProduct_IncrementAndSet(t *testing.T) {
	p, err := NewProduct(uuid.New(), "Sucre", decimal.NewFromInt(800), 0)
	require.NoError(t, err)

	require.NoError(t, p.Increment(4))
	assert.Equal(t, 4, p.Stock)
	assert.ErrorIs(t, p.Increment(-1), ErrInvalidQuantity)

	require.NoError(t, p.SetStock(9))
	assert.Equal(t, 9, p.Stock)
	assert.ErrorIs(t, p.SetStock(-1), ErrNegativeStock)
}

func TestNewProduct_Validation(t *testing.T) {
	_, err := NewProduct(uuid.New(), " ", decimal.Zero, 0)
	assert.ErrorIs(t, err, ErrProductNameRequired)

	_, err = NewProduct(uuid.New(), "Huile", decimal.Zero, -2)
	assert.ErrorIs(t, err, ErrNegativeStock)
}
