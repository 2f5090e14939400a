package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/store"
)

func TestStockChange_Crossings(t *testing.T) {
	tests := []struct {
		name        string
		ch          StockChange
		low         bool
		recovered   bool
		depleted    bool
		replenished bool
	}{
		{"lands on threshold", StockChange{Before: 2, After: 1, Min: 1}, true, false, false, false},
		{"leaves threshold downward", StockChange{Before: 1, After: 0, Min: 1}, true, false, true, false},
		{"stays above", StockChange{Before: 5, After: 4, Min: 1}, false, false, false, false},
		{"already below", StockChange{Before: 0.5, After: 0, Min: 1}, false, false, true, false},
		{"recovers", StockChange{Before: 1, After: 3, Min: 1}, false, true, false, false},
		{"back from zero", StockChange{Before: 0, After: 1, Min: 1}, false, false, false, true},
		{"back from zero above min", StockChange{Before: 0, After: 2, Min: 1}, false, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.low, tt.ch.Low(), "Low")
			assert.Equal(t, tt.recovered, tt.ch.Recovered(), "Recovered")
			assert.Equal(t, tt.depleted, tt.ch.Depleted(), "Depleted")
			assert.Equal(t, tt.replenished, tt.ch.Replenished(), "Replenished")
			assert.Equal(t, tt.depleted || tt.replenished, tt.ch.CatalogVisible())
		})
	}
}

func seedTracked(t *testing.T, c *Catalog, name string, qty, min float64) {
	t.Helper()
	ctx := context.Background()
	cat, err := c.store.CategoryByName(ctx, "Stock")
	require.NoError(t, err)
	if cat == nil {
		created, err := c.CreateCategory(ctx, "Stock", "admin")
		require.NoError(t, err)
		cat = &created
	}
	_, err = c.CreateProduct(ctx, ProductInput{
		CategoryID: cat.ID, Name: name, PriceCents: 100, TrackStock: true, StockQty: qty, MinStock: min,
	}, "admin")
	require.NoError(t, err)
}

func TestReserve(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	seedTracked(t, c, "Espresso", 2, 1)

	var ch *StockChange
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		ch, err = c.Reserve(ctx, tx, "Espresso", 1)
		if err != nil {
			return err
		}
		return c.AuditCrossing(ctx, tx, ch, "cashier")
	})
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.Equal(t, StockChange{Product: "Espresso", Before: 2, After: 1, Min: 1}, *ch)

	entries, _ := s.ListAudit(ctx, 1)
	assert.Equal(t, "inventory_low", entries[0].Action)
	assert.Equal(t, "2", entries[0].OldValue)
	assert.Equal(t, "1", entries[0].NewValue)
}

func TestReserve_InsufficientLeavesStock(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	seedTracked(t, c, "Espresso", 1, 0)

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		_, err := c.Reserve(ctx, tx, "Espresso", 2)
		return err
	})
	var se *domain.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Espresso", se.Product)
	assert.Equal(t, 2.0, se.Requested)
	assert.Equal(t, 1.0, se.Available)

	p, _ := c.GetProduct(ctx, "Espresso")
	assert.Equal(t, 1.0, p.Stock())
}

func TestReserveRelease_UntrackedAndUnknown(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Services", "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Cover", PriceCents: 500}, "admin")

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		for _, name := range []string{"Cover", "PS 2 players - 3 min"} {
			ch, err := c.Reserve(ctx, tx, name, 100)
			if err != nil {
				return err
			}
			assert.Nil(t, ch)
			ch, err = c.Release(ctx, tx, name, 1)
			if err != nil {
				return err
			}
			assert.Nil(t, ch)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRelease_Recovery(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	seedTracked(t, c, "Water", 1, 2)

	var ch *StockChange
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if ch, err = c.Release(ctx, tx, "Water", 4); err != nil {
			return err
		}
		return c.AuditCrossing(ctx, tx, ch, "")
	})
	require.NoError(t, err)
	assert.True(t, ch.Recovered())

	entries, _ := s.ListAudit(ctx, 1)
	assert.Equal(t, "inventory_recovered", entries[0].Action)
	assert.Equal(t, "system", entries[0].Actor)

	low, err := c.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestReserveRelease_NamesakeInOtherCategoryUntouched(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()

	var ids []int64
	for _, category := range []string{"Cold", "Hot"} {
		cat, err := c.CreateCategory(ctx, category, "admin")
		require.NoError(t, err)
		p, err := c.CreateProduct(ctx, ProductInput{
			CategoryID: cat.ID, Name: "Water", PriceCents: 100, TrackStock: true, StockQty: 5,
		}, "admin")
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	err := s.WithTx(ctx, func(tx *store.Tx) error {
		ch, err := c.Reserve(ctx, tx, "Water", 2)
		if err != nil {
			return err
		}
		assert.Equal(t, StockChange{Product: "Water", Before: 5, After: 3}, *ch)
		ch, err = c.Release(ctx, tx, "Water", 1)
		if err != nil {
			return err
		}
		assert.Equal(t, StockChange{Product: "Water", Before: 3, After: 4}, *ch)
		return nil
	})
	require.NoError(t, err)

	cold, err := s.GetProductByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 4.0, cold.Stock())
	hot, err := s.GetProductByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, 5.0, hot.Stock())
}
