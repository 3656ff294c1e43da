package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockService_DecrementIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewStockService(uuid.New(), nil)
	p, err := s.CreateProduct(ctx, "Riz 25kg", decimal.NewFromInt(12500), 4)
	require.NoError(t, err)

	change, ok := s.Decrement(ctx, "  riz 25KG", 3)
	require.True(t, ok)
	assert.Equal(t, p.ID, change.ProductID)
	assert.Equal(t, -3, change.Applied)
	assert.Equal(t, 1, change.StockAfter)

	change, ok = s.Decrement(ctx, "Riz 25kg", 5)
	require.True(t, ok)
	assert.Equal(t, -1, change.Applied, "clamped at zero")
	assert.Equal(t, 0, change.StockAfter)

	change, ok = s.Increment(ctx, "Riz 25kg", 2)
	require.True(t, ok)
	assert.Equal(t, 2, change.StockAfter)
}

func TestStockService_UnmatchedIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := NewStockService(uuid.New(), nil)

	_, ok := s.Decrement(ctx, "Inconnu", 1)
	assert.False(t, ok)
	_, ok = s.Increment(ctx, "Inconnu", 1)
	assert.False(t, ok)
	assert.Empty(t, s.List(ctx), "unmatched names never create products")
}

func TestStockService_MergeRemote(t *testing.T) {
	ctx := context.Background()
	s := NewStockService(uuid.New(), nil)
	local, err := s.CreateProduct(ctx, "Sucre", decimal.NewFromInt(800), 10)
	require.NoError(t, err)
	localOnly, err := s.CreateProduct(ctx, "Huile", decimal.NewFromInt(1500), 3)
	require.NoError(t, err)

	remote := local.Clone()
	remote.Stock = 7
	cycleStart := time.Now().Add(time.Minute)

	replaced, kept := s.MergeRemote([]*catalog.Product{remote}, cycleStart)
	assert.Equal(t, 1, replaced)
	assert.Equal(t, 0, kept)

	got, err := s.Get(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)
	_, err = s.Get(ctx, localOnly.ID)
	assert.NoError(t, err, "local-only products are kept")
}

func TestStockService_MergeKeepsRecentLocalEdits(t *testing.T) {
	ctx := context.Background()
	s := NewStockService(uuid.New(), nil)
	local, err := s.CreateProduct(ctx, "Sucre", decimal.NewFromInt(800), 10)
	require.NoError(t, err)
	remote := local.Clone()
	remote.Stock = 99

	cycleStart := time.Now().Add(-time.Minute)
	_, err = s.SetStock(ctx, local.ID, 4)
	require.NoError(t, err)

	_, kept := s.MergeRemote([]*catalog.Product{remote}, cycleStart)
	assert.Equal(t, 1, kept)
	got, _ := s.Get(ctx, local.ID)
	assert.Equal(t, 4, got.Stock)
}
