package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/tabengine/internal/domain"
)

type orderRow struct {
	ID            int64          `db:"id"`
	TableCode     string         `db:"table_code"`
	OpenedAt      string         `db:"opened_at"`
	ClosedAt      sql.NullString `db:"closed_at"`
	Status        string         `db:"status"`
	OpenedBy      string         `db:"opened_by"`
	ClosedBy      sql.NullString `db:"closed_by"`
	DiscountCents int64          `db:"discount_cents"`
}

func (r orderRow) toDomain() (domain.Order, error) {
	o := domain.Order{
		ID:            r.ID,
		TableCode:     r.TableCode,
		Status:        domain.OrderStatus(r.Status),
		OpenedBy:      r.OpenedBy,
		ClosedBy:      r.ClosedBy.String,
		DiscountCents: r.DiscountCents,
	}
	opened, err := parseTime(r.OpenedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %d opened_at: %w", r.ID, err)
	}
	o.OpenedAt = opened
	if r.ClosedAt.Valid {
		closed, err := parseTime(r.ClosedAt.String)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %d closed_at: %w", r.ID, err)
		}
		o.ClosedAt = &closed
	}
	return o, nil
}

const orderColumns = `id, table_code, opened_at, closed_at, status, opened_by, closed_by, discount_cents`

// InsertOrder opens a new order for table. The partial unique index on
// open orders rejects a second open order for the same table.
func (q *Queries) InsertOrder(ctx context.Context, table, openedBy string, at time.Time) (domain.Order, error) {
	res, err := q.exec(ctx, `INSERT INTO orders(table_code, opened_at, status, opened_by)
		VALUES(?, ?, 'open', ?)`, table, formatTime(at), openedBy)
	if err != nil {
		return domain.Order{}, persistErr("insert order", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Order{}, persistErr("insert order", err)
	}
	return domain.Order{
		ID:        id,
		TableCode: table,
		OpenedAt:  at.UTC(),
		Status:    domain.StatusOpen,
		OpenedBy:  openedBy,
	}, nil
}

// GetOrder returns the order with id including its items, or nil.
func (q *Queries) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var row orderRow
	err := q.get(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get order", err)
	}
	o, err := row.toDomain()
	if err != nil {
		return nil, persistErr("get order", err)
	}
	items, err := q.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// OpenOrders returns every open order with its items, oldest first.
func (q *Queries) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	rows := []orderRow{}
	if err := q.selectAll(ctx, &rows,
		`SELECT `+orderColumns+` FROM orders WHERE status = 'open' ORDER BY id`); err != nil {
		return nil, persistErr("list open orders", err)
	}
	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toDomain()
		if err != nil {
			return nil, persistErr("list open orders", err)
		}
		items, err := q.ListItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
		out = append(out, o)
	}
	return out, nil
}

// CountOpenOrders returns the number of open orders for table.
func (q *Queries) CountOpenOrders(ctx context.Context, table string) (int, error) {
	var n int
	if err := q.get(ctx, &n, `SELECT COUNT(*) FROM orders WHERE table_code = ? AND status = 'open'`, table); err != nil {
		return 0, persistErr("count open orders", err)
	}
	return n, nil
}

// CloseOrder moves an open order to status. It fails if the order is no
// longer open, so a stale in-memory view can never close an order twice.
func (q *Queries) CloseOrder(ctx context.Context, id int64, status domain.OrderStatus, closedBy string, at time.Time) error {
	res, err := q.exec(ctx, `UPDATE orders SET status = ?, closed_at = ?, closed_by = ?
		WHERE id = ? AND status = 'open'`, string(status), formatTime(at), closedBy, id)
	if err != nil {
		return persistErr("close order", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("close order", err)
	}
	if n != 1 {
		return persistErr("close order", fmt.Errorf("order %d is not open", id))
	}
	return nil
}

// SetDiscount stores the discount of an order.
func (q *Queries) SetDiscount(ctx context.Context, orderID, cents int64) error {
	_, err := q.exec(ctx, `UPDATE orders SET discount_cents = ? WHERE id = ?`, cents, orderID)
	return persistErr("set discount", err)
}

// ListItems returns an order's items in insertion order.
func (q *Queries) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	items := []domain.OrderItem{}
	err := q.selectAll(ctx, &items, `SELECT id, order_id, product_name, price_cents, qty, note
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, persistErr("list items", err)
	}
	return items, nil
}

// InsertItem adds a line to an order and returns it with its row id.
func (q *Queries) InsertItem(ctx context.Context, item domain.OrderItem) (domain.OrderItem, error) {
	res, err := q.exec(ctx, `INSERT INTO order_items(order_id, product_name, price_cents, qty, note)
		VALUES(?, ?, ?, ?, ?)`, item.OrderID, item.Product, item.UnitPriceCents, item.Qty, item.Note)
	if err != nil {
		return domain.OrderItem{}, persistErr("insert item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.OrderItem{}, persistErr("insert item", err)
	}
	item.ID = id
	return item, nil
}

// DeleteItem removes one order line.
func (q *Queries) DeleteItem(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM order_items WHERE id = ?`, id)
	return persistErr("delete item", err)
}

// UpdateItem sets the quantity and note of one order line.
func (q *Queries) UpdateItem(ctx context.Context, id int64, qty float64, note string) error {
	_, err := q.exec(ctx, `UPDATE order_items SET qty = ?, note = ? WHERE id = ?`, qty, note, id)
	return persistErr("update item", err)
}

// ReparentItems moves every line of one order onto another and returns
// how many moved.
func (q *Queries) ReparentItems(ctx context.Context, fromOrderID, toOrderID int64) (int64, error) {
	res, err := q.exec(ctx, `UPDATE order_items SET order_id = ? WHERE order_id = ?`, toOrderID, fromOrderID)
	if err != nil {
		return 0, persistErr("reparent items", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("reparent items", err)
	}
	return n, nil
}

type paymentRow struct {
	ID          int64          `db:"id"`
	OrderID     int64          `db:"order_id"`
	Method      string         `db:"method"`
	AmountCents int64          `db:"amount_cents"`
	PaidAt      string         `db:"paid_at"`
	Cashier     string         `db:"cashier"`
	Reference   sql.NullString `db:"reference"`
}

// InsertPayment records a payment and returns it with its row id.
func (q *Queries) InsertPayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	res, err := q.exec(ctx, `INSERT INTO payments(order_id, method, amount_cents, paid_at, cashier, reference)
		VALUES(?, ?, ?, ?, ?, ?)`,
		p.OrderID, p.Method, p.AmountCents, formatTime(p.PaidAt), p.Cashier, nullString(p.Reference))
	if err != nil {
		return domain.Payment{}, persistErr("insert payment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Payment{}, persistErr("insert payment", err)
	}
	p.ID = id
	return p, nil
}

// ListPayments returns the payments recorded for an order.
func (q *Queries) ListPayments(ctx context.Context, orderID int64) ([]domain.Payment, error) {
	rows := []paymentRow{}
	if err := q.selectAll(ctx, &rows, `SELECT id, order_id, method, amount_cents, paid_at, cashier, reference
		FROM payments WHERE order_id = ? ORDER BY id`, orderID); err != nil {
		return nil, persistErr("list payments", err)
	}
	out := make([]domain.Payment, 0, len(rows))
	for _, r := range rows {
		paid, err := parseTime(r.PaidAt)
		if err != nil {
			return nil, persistErr("list payments", fmt.Errorf("payment %d paid_at: %w", r.ID, err))
		}
		out = append(out, domain.Payment{
			ID:          r.ID,
			OrderID:     r.OrderID,
			Method:      r.Method,
			AmountCents: r.AmountCents,
			PaidAt:      paid,
			Cashier:     r.Cashier,
			Reference:   r.Reference.String,
		})
	}
	return out, nil
}
