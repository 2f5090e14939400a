package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTotal_Truncates(t *testing.T) {
	assert.Equal(t, int64(300), LineTotal(100, 3))
	assert.Equal(t, int64(150), LineTotal(100, 1.5))
	assert.Equal(t, int64(33), LineTotal(100, 0.333))
	assert.Equal(t, int64(30), LineTotal(100, 0.3))
	assert.Equal(t, int64(0), LineTotal(0, 7))
}

func TestComputeTotals_ClampsAtZero(t *testing.T) {
	items := []OrderItem{
		{Product: "Espresso", UnitPriceCents: 250, Qty: 2},
		{Product: "Water", UnitPriceCents: 100, Qty: 1},
	}

	got := ComputeTotals(items, 100)
	assert.Equal(t, Totals{Subtotal: 600, Discount: 100, Total: 500}, got)

	got = ComputeTotals(items, 1000)
	assert.Equal(t, int64(0), got.Total)
	assert.Equal(t, int64(600), got.Subtotal)

	assert.Equal(t, Totals{}, ComputeTotals(nil, 0))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" p2 ")
	require.NoError(t, err)
	assert.Equal(t, ModeP2, m)

	m, err = ParseMode("P4")
	require.NoError(t, err)
	assert.Equal(t, ModeP4, m)

	_, err = ParseMode("P3")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestMode_Label(t *testing.T) {
	assert.Equal(t, "PS 2 players", ModeP2.Label())
	assert.Equal(t, "PS 4 players", ModeP4.Label())
}

func TestNormalizeTableCodes(t *testing.T) {
	got := NormalizeTableCodes([]string{" t01", "T02", "", "t01", "  ", "vip"})
	assert.Equal(t, []string{"T01", "T02", "VIP"}, got)
}

func TestDefaultTableCodes(t *testing.T) {
	codes := DefaultTableCodes(0)
	require.Len(t, codes, DefaultTableCount)
	assert.Equal(t, "T01", codes[0])
	assert.Equal(t, "T30", codes[29])

	assert.Equal(t, []string{"T01", "T02"}, DefaultTableCodes(2))
}

func TestCleanName_NFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"
	assert.Equal(t, composed, CleanName("  "+decomposed+" "))
}

func TestCleanActor(t *testing.T) {
	assert.Equal(t, "system", CleanActor("  "))
	assert.Equal(t, "rana", CleanActor(" rana "))
}

func TestSession_Elapsed(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{TableCode: "T05", Mode: ModeP2, StartedAt: start, AccumulatedSeconds: 30}

	assert.Equal(t, int64(120), s.Elapsed(start.Add(90*time.Second)))
	// clock skew never subtracts accumulated time
	assert.Equal(t, int64(30), s.Elapsed(start.Add(-time.Minute)))
}

func TestErrorHelpers(t *testing.T) {
	stockErr := &StockError{Product: "Espresso", Requested: 1, Available: 0}
	wrapped := fmt.Errorf("add item: %w", stockErr)
	assert.True(t, IsStockError(wrapped))
	assert.False(t, IsValidationError(wrapped))
	assert.Equal(t, ErrCodeStock, CodeOf(wrapped))
	assert.Contains(t, stockErr.Error(), `"Espresso"`)

	perr := &PersistenceError{Op: "commit", Err: fmt.Errorf("database is locked")}
	assert.True(t, IsPersistenceError(fmt.Errorf("settle: %w", perr)))
	assert.Equal(t, ErrCodePersistence, CodeOf(perr))

	assert.True(t, IsNotFound(fmt.Errorf("product 7: %w", ErrNotFound)))
	assert.Equal(t, ErrCodeValidation, CodeOf(NewValidationError("name", "required")))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("other")))
}
