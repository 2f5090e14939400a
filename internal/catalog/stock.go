package catalog

import (
	"context"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/store"
)

// qtyEpsilon absorbs float noise in fractional quantities.
const qtyEpsilon = 1e-6

// StockChange is the effect of one stock move on a tracked product.
type StockChange struct {
	Product string
	Before  float64
	After   float64
	Min     float64
}

// Event converts the change to its notification payload.
func (s StockChange) Event() events.StockEvent {
	return events.StockEvent{Product: s.Product, Before: s.Before, After: s.After, Min: s.Min}
}

// Low reports a decrement that reached the threshold from at or above it.
func (s StockChange) Low() bool {
	return s.After < s.Before && s.Before >= s.Min && s.After <= s.Min
}

// Recovered reports an increment that lifted stock above the threshold.
func (s StockChange) Recovered() bool {
	return s.After > s.Before && s.Before <= s.Min && s.Min < s.After
}

// Depleted reports stock running out.
func (s StockChange) Depleted() bool {
	return s.Before > 0 && s.After <= 0
}

// Replenished reports stock coming back from zero.
func (s StockChange) Replenished() bool {
	return s.Before <= 0 && s.After > 0
}

// CatalogVisible reports whether the move changes what the catalog shows
// as available.
func (s StockChange) CatalogVisible() bool {
	return s.Depleted() || s.Replenished()
}

// Reserve takes qty of a tracked product inside tx. Order lines carry only
// the product name, so the move applies to the product GetProduct resolves
// (the oldest with that name) and never to a namesake in another category.
// It returns nil for
// names that are not tracked products, and a *domain.StockError without
// touching stock when the pre-decrement quantity cannot cover qty.
func (c *Catalog) Reserve(ctx context.Context, tx *store.Tx, name string, qty float64) (*StockChange, error) {
	p, err := tx.GetProduct(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.TrackStock {
		return nil, nil
	}
	before := p.Stock()
	if before < qty-qtyEpsilon {
		return nil, &domain.StockError{Product: name, Requested: qty, Available: before}
	}
	state, err := tx.DecStock(ctx, p.ID, qty)
	if err != nil || state == nil {
		return nil, err
	}
	return &StockChange{Product: name, Before: before, After: state.Qty, Min: state.Min}, nil
}

// Release returns qty of a tracked product to stock inside tx. It returns
// nil for names that are not tracked products.
func (c *Catalog) Release(ctx context.Context, tx *store.Tx, name string, qty float64) (*StockChange, error) {
	p, err := tx.GetProduct(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.TrackStock {
		return nil, nil
	}
	before := p.Stock()
	state, err := tx.IncStock(ctx, p.ID, qty)
	if err != nil || state == nil {
		return nil, err
	}
	return &StockChange{Product: name, Before: before, After: state.Qty, Min: state.Min}, nil
}

// AuditCrossing appends the inventory_low or inventory_recovered row for a
// threshold crossing inside tx. Moves that cross nothing are not recorded.
func (c *Catalog) AuditCrossing(ctx context.Context, tx *store.Tx, ch *StockChange, actor string) error {
	if ch == nil {
		return nil
	}
	var action string
	switch {
	case ch.Low():
		action = "inventory_low"
	case ch.Recovered():
		action = "inventory_recovered"
	default:
		return nil
	}
	return tx.AppendAudit(ctx, domain.AuditEntry{
		Actor: actor, Action: action, EntityType: "product", EntityName: ch.Product,
		OldValue: domain.FormatQty(ch.Before), NewValue: domain.FormatQty(ch.After),
	})
}
