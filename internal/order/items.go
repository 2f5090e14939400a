package order

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/metrics"
	"github.com/roach88/tabengine/internal/store"
)

const qtyEpsilon = 1e-6

// itemAdd is a committed-pending item insert.
type itemAdd struct {
	table   string
	created *domain.Order
	orderID int64
	item    domain.OrderItem
	change  *catalog.StockChange
}

// AddItem appends qty of product at priceCents to the open order of table,
// opening one if needed. Names that are not tracked products are recorded
// without stock checks. A *domain.StockError leaves order and stock
// untouched.
func (e *Engine) AddItem(ctx context.Context, table, product string, priceCents int64, qty float64, note, actor string) error {
	code, err := validTable(table)
	if err != nil {
		return err
	}
	name := domain.CleanName(product)
	if name == "" {
		return domain.NewValidationError("product", "product name is required")
	}
	if err := validQty(qty); err != nil {
		return err
	}
	if priceCents < 0 {
		return domain.NewValidationError("price", "price must not be negative")
	}

	e.lock()
	defer e.unlock()

	var add *itemAdd
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		add, err = e.addItemTx(ctx, tx, code, name, priceCents, qty, strings.TrimSpace(note), actor)
		return err
	})
	if err != nil {
		if domain.IsStockError(err) {
			metrics.IncStockRejections()
		}
		return err
	}
	e.applyAdd(add)
	e.logger.Debug("item added",
		zap.String("table", code),
		zap.String("product", name),
		zap.Float64("qty", qty))
	return nil
}

// addItemTx opens the order if the table has none, reserves stock and
// inserts the item row.
func (e *Engine) addItemTx(ctx context.Context, tx *store.Tx, table, product string, priceCents int64, qty float64, note, actor string) (*itemAdd, error) {
	add := &itemAdd{table: table}
	if cur := e.orders[table]; cur != nil {
		add.orderID = cur.order.ID
	} else {
		o, err := tx.InsertOrder(ctx, table, domain.CleanActor(actor), e.clock.Now())
		if err != nil {
			return nil, err
		}
		add.created = &o
		add.orderID = o.ID
	}

	change, err := e.catalog.Reserve(ctx, tx, product, qty)
	if err != nil {
		return nil, err
	}
	add.change = change

	add.item, err = tx.InsertItem(ctx, domain.OrderItem{
		OrderID:        add.orderID,
		Product:        product,
		UnitPriceCents: priceCents,
		Qty:            qty,
		Note:           note,
	})
	if err != nil {
		return nil, err
	}
	if err := e.catalog.AuditCrossing(ctx, tx, change, actor); err != nil {
		return nil, err
	}
	return add, nil
}

func (e *Engine) applyAdd(a *itemAdd) {
	if a == nil {
		return
	}
	o := e.orders[a.table]
	if a.created != nil {
		o = newOpenOrder(*a.created, e.logger)
		e.orders[a.table] = o
		e.emitTableState(a.table, events.TableOccupied)
	}
	o.order.Items = append(o.order.Items, a.item)
	metrics.IncItemsAdded()
	e.emitTotal(a.table)
	e.emitStock(a.change)
}

// RemoveItem deletes the item at index from the open order of table and
// restocks it. It reports false when there is no such item.
func (e *Engine) RemoveItem(ctx context.Context, table string, index int, actor string) (bool, error) {
	code := domain.NormalizeTableCode(table)

	e.lock()
	defer e.unlock()
	return e.removeItemLocked(ctx, code, index, actor)
}

func (e *Engine) removeItemLocked(ctx context.Context, table string, index int, actor string) (bool, error) {
	o := e.orders[table]
	if o == nil || index < 0 || index >= len(o.order.Items) {
		return false, nil
	}
	item := o.order.Items[index]

	var change *catalog.StockChange
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		change, err = e.catalog.Release(ctx, tx, item.Product, item.Qty)
		if err != nil {
			return err
		}
		if err := tx.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return e.catalog.AuditCrossing(ctx, tx, change, actor)
	})
	if err != nil {
		return false, err
	}

	o.order.Items = append(o.order.Items[:index:index], o.order.Items[index+1:]...)
	e.emitStock(change)
	e.emitTotal(table)
	e.logger.Debug("item removed", zap.String("table", table), zap.String("product", item.Product))
	return true, nil
}

// UpdateItem changes the quantity and/or note of the item at index. A nil
// argument keeps the current value. A quantity at or below zero removes the
// item. Raising the quantity reserves the difference and may fail with a
// *domain.StockError, which keeps the original quantity; lowering it
// restocks the difference.
func (e *Engine) UpdateItem(ctx context.Context, table string, index int, qty *float64, note *string, actor string) (bool, error) {
	code := domain.NormalizeTableCode(table)
	if qty != nil && (math.IsNaN(*qty) || math.IsInf(*qty, 0)) {
		return false, domain.NewValidationError("qty", "quantity must be a finite number")
	}

	e.lock()
	defer e.unlock()

	o := e.orders[code]
	if o == nil || index < 0 || index >= len(o.order.Items) {
		return false, nil
	}
	item := o.order.Items[index]

	newQty := item.Qty
	if qty != nil {
		newQty = *qty
	}
	newNote := item.Note
	if note != nil {
		newNote = strings.TrimSpace(*note)
	}
	if newQty <= 0 {
		return e.removeItemLocked(ctx, code, index, actor)
	}
	delta := newQty - item.Qty
	if math.Abs(delta) < qtyEpsilon && newNote == item.Note {
		return true, nil
	}

	var change *catalog.StockChange
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		switch {
		case delta > qtyEpsilon:
			change, err = e.catalog.Reserve(ctx, tx, item.Product, delta)
		case delta < -qtyEpsilon:
			change, err = e.catalog.Release(ctx, tx, item.Product, -delta)
		}
		if err != nil {
			return err
		}
		if err := tx.UpdateItem(ctx, item.ID, newQty, newNote); err != nil {
			return err
		}
		return e.catalog.AuditCrossing(ctx, tx, change, actor)
	})
	if err != nil {
		if domain.IsStockError(err) {
			metrics.IncStockRejections()
		}
		return false, err
	}

	o.order.Items[index].Qty = newQty
	o.order.Items[index].Note = newNote
	e.emitTotal(code)
	e.emitStock(change)
	return true, nil
}

// ApplyDiscount sets the discount of the open order of table. Negative
// amounts are clamped to zero. It reports false when the table is not open.
func (e *Engine) ApplyDiscount(ctx context.Context, table string, amountCents int64) (bool, error) {
	if amountCents < 0 {
		amountCents = 0
	}
	code := domain.NormalizeTableCode(table)

	e.lock()
	defer e.unlock()

	o := e.orders[code]
	if o == nil {
		return false, nil
	}
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.SetDiscount(ctx, o.order.ID, amountCents)
	})
	if err != nil {
		return false, err
	}
	o.order.DiscountCents = amountCents
	e.emitTotal(code)
	return true, nil
}

// ClearDiscount removes the discount of the open order of table.
func (e *Engine) ClearDiscount(ctx context.Context, table string) (bool, error) {
	return e.ApplyDiscount(ctx, table, 0)
}

// GetItems returns a copy of the items of the open order of table.
func (e *Engine) GetItems(table string) []domain.OrderItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.orders[domain.NormalizeTableCode(table)]
	if o == nil {
		return nil
	}
	out := make([]domain.OrderItem, len(o.order.Items))
	copy(out, o.order.Items)
	return out
}

// GetTotals returns subtotal, discount and total of table. Tables without
// an open order are all zero.
func (e *Engine) GetTotals(table string) domain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.orders[domain.NormalizeTableCode(table)]
	if o == nil {
		return domain.Totals{}
	}
	return o.totals()
}

// Order returns a copy of the open order of table, or nil.
func (e *Engine) Order(table string) *domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	o := e.orders[domain.NormalizeTableCode(table)]
	if o == nil {
		return nil
	}
	out := o.order
	out.Items = append([]domain.OrderItem(nil), o.order.Items...)
	return &out
}

func validQty(qty float64) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
		return domain.NewValidationError("qty", "quantity must be positive")
	}
	return nil
}
