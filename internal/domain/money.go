package domain

import "github.com/shopspring/decimal"

// LineTotal multiplies a unit price by a fractional quantity and truncates
// toward zero. Decimal arithmetic keeps quantities like 0.1 exact.
func LineTotal(unitCents int64, qty float64) int64 {
	return decimal.NewFromInt(unitCents).Mul(decimal.NewFromFloat(qty)).IntPart()
}

// Totals is the subtotal/discount/total triple shown for a table.
type Totals struct {
	Subtotal int64 `json:"subtotal_cents"`
	Discount int64 `json:"discount_cents"`
	Total    int64 `json:"total_cents"`
}

// ComputeTotals sums the items and applies the discount. The total never
// goes below zero.
func ComputeTotals(items []OrderItem, discount int64) Totals {
	var sub int64
	for _, it := range items {
		sub += it.TotalCents()
	}
	total := sub - discount
	if total < 0 {
		total = 0
	}
	return Totals{Subtotal: sub, Discount: discount, Total: total}
}
