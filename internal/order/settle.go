package order

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/metrics"
	"github.com/roach88/tabengine/internal/store"
)

// DefaultPaymentMethod is recorded when Settle is given no method.
const DefaultPaymentMethod = "cash"

// Receipt describes a settled order.
type Receipt struct {
	OrderID   int64              `json:"order_id"`
	Table     string             `json:"table"`
	Method    string             `json:"method"`
	Items     []domain.OrderItem `json:"items"`
	Totals    domain.Totals      `json:"totals"`
	Amount    int64              `json:"amount_cents"`
	Reference string             `json:"reference"`
	PaidAt    time.Time          `json:"paid_at"`
	Cashier   string             `json:"cashier"`
}

// Settle bills any running session of table, records the payment of the
// order total and closes the order as paid, all in one transaction. It
// returns nil when the table has nothing to settle.
func (e *Engine) Settle(ctx context.Context, table, method, actor string) (*Receipt, error) {
	code := domain.NormalizeTableCode(table)
	method = strings.TrimSpace(method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	cashier := domain.CleanActor(actor)

	e.lock()
	defer e.unlock()

	cur := e.orders[code]
	if cur == nil {
		if _, running := e.meter.Get(code); !running {
			return nil, nil
		}
	} else if !cur.lifecycle.Can(eventSettle) {
		return nil, nil
	}

	now := e.clock.Now()
	var (
		closed  *sessionClose
		receipt Receipt
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		closed, err = e.closeSessionTx(ctx, tx, code, cashier)
		if err != nil {
			return err
		}

		var (
			orderID  int64
			items    []domain.OrderItem
			discount int64
		)
		if cur != nil {
			orderID = cur.order.ID
			items = append(items, cur.order.Items...)
			discount = cur.order.DiscountCents
		}
		if closed != nil && closed.add != nil {
			orderID = closed.add.orderID
			items = append(items, closed.add.item)
		}
		totals := domain.ComputeTotals(items, discount)

		p, err := tx.InsertPayment(ctx, domain.Payment{
			OrderID:     orderID,
			Method:      method,
			AmountCents: totals.Total,
			PaidAt:      now,
			Cashier:     cashier,
			Reference:   e.refs.Next(),
		})
		if err != nil {
			return err
		}
		if err := tx.CloseOrder(ctx, orderID, domain.StatusPaid, cashier, now); err != nil {
			return err
		}
		receipt = Receipt{
			OrderID:   orderID,
			Table:     code,
			Method:    method,
			Items:     items,
			Totals:    totals,
			Amount:    totals.Total,
			Reference: p.Reference,
			PaidAt:    p.PaidAt,
			Cashier:   cashier,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.applySessionClose(closed)
	if o := e.orders[code]; o != nil {
		o.finish(ctx, eventSettle, e.logger)
		delete(e.orders, code)
	}
	e.emitTableState(code, events.TableFree)
	e.emitTotal(code)
	e.emitSession(code, false)
	metrics.RecordSettlement(method, receipt.Amount)
	e.logger.Debug("order settled",
		zap.String("table", code),
		zap.Int64("order_id", receipt.OrderID),
		zap.Int64("amount_cents", receipt.Amount),
		zap.String("method", method))
	return &receipt, nil
}

// MergeTables moves every item of source onto target and voids the source
// order. A session running on source is billed to source first. The
// discounts of both orders are summed. It reports false unless both tables
// are open and distinct.
func (e *Engine) MergeTables(ctx context.Context, target, source, actor string) (bool, error) {
	dst := domain.NormalizeTableCode(target)
	src := domain.NormalizeTableCode(source)
	if dst == "" || src == "" || dst == src {
		return false, nil
	}

	e.lock()
	defer e.unlock()

	primary := e.orders[dst]
	secondary := e.orders[src]
	if primary == nil || secondary == nil || !secondary.lifecycle.Can(eventVoid) {
		return false, nil
	}

	now := e.clock.Now()
	var (
		closed   *sessionClose
		discount int64
		moved    int64
	)
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		closed, err = e.closeSessionTx(ctx, tx, src, actor)
		if err != nil {
			return err
		}
		moved, err = tx.ReparentItems(ctx, secondary.order.ID, primary.order.ID)
		if err != nil {
			return err
		}
		if err := tx.CloseOrder(ctx, secondary.order.ID, domain.StatusVoid, domain.CleanActor(actor), now); err != nil {
			return err
		}
		discount = max(0, primary.order.DiscountCents+secondary.order.DiscountCents)
		if err := tx.SetDiscount(ctx, primary.order.ID, discount); err != nil {
			return err
		}

		items := append(append([]domain.OrderItem(nil), primary.order.Items...), secondary.order.Items...)
		if closed != nil && closed.add != nil {
			items = append(items, closed.add.item)
		}
		total := domain.ComputeTotals(items, discount).Total
		return tx.AppendAudit(ctx, domain.AuditEntry{
			At: now, Actor: actor, Action: "merge_tables", EntityType: "order", EntityName: dst,
			OldValue: src, NewValue: strconv.FormatInt(total, 10),
		})
	})
	if err != nil {
		return false, err
	}

	e.applySessionClose(closed)
	for _, it := range secondary.order.Items {
		it.OrderID = primary.order.ID
		primary.order.Items = append(primary.order.Items, it)
	}
	primary.order.DiscountCents = discount
	secondary.order.Items = nil
	secondary.finish(ctx, eventVoid, e.logger)
	delete(e.orders, src)

	// The freed source always reports its session off, even when
	// applySessionClose already did, so observers that missed the first
	// signal still reset the table.
	e.emitTableState(src, events.TableFree)
	e.emitTotal(src)
	e.emitSession(src, false)
	e.emitTotal(dst)
	metrics.IncMerges()
	e.logger.Debug("tables merged",
		zap.String("target", dst),
		zap.String("source", src),
		zap.Int64("items_moved", moved))
	return true, nil
}
