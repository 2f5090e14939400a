package store

import (
	"context"
	"fmt"

	"github.com/roach88/tabengine/internal/domain"
)

type purchaseRow struct {
	ID          int64  `db:"id"`
	PurchasedAt string `db:"purchased_at"`
	CreatedAt   string `db:"created_at"`
	Supplier    string `db:"supplier"`
	InvoiceNo   string `db:"invoice_no"`
	AmountCents int64  `db:"amount_cents"`
	Notes       string `db:"notes"`
	RecordedBy  string `db:"recorded_by"`
}

const purchaseColumns = `id, purchased_at, created_at, supplier, invoice_no, amount_cents, notes, recorded_by`

func (r purchaseRow) toDomain() (domain.Purchase, error) {
	at, err := parseTime(r.PurchasedAt)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("purchase %d purchased_at: %w", r.ID, err)
	}
	created, _ := parseTime(r.CreatedAt)
	return domain.Purchase{
		ID:          r.ID,
		PurchasedAt: at,
		Supplier:    r.Supplier,
		InvoiceNo:   r.InvoiceNo,
		AmountCents: r.AmountCents,
		Notes:       r.Notes,
		RecordedBy:  r.RecordedBy,
		CreatedAt:   created,
	}, nil
}

// InsertPurchase stores p and returns its id.
func (q *Queries) InsertPurchase(ctx context.Context, p domain.Purchase) (int64, error) {
	res, err := q.exec(ctx, `INSERT INTO purchases
		(purchased_at, created_at, supplier, invoice_no, amount_cents, notes, recorded_by)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		formatTime(p.PurchasedAt), formatTime(p.CreatedAt), p.Supplier, p.InvoiceNo,
		p.AmountCents, p.Notes, p.RecordedBy)
	if err != nil {
		return 0, persistErr("insert purchase", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("insert purchase", err)
	}
	return id, nil
}

// GetPurchase returns the purchase with id, or nil if absent.
func (q *Queries) GetPurchase(ctx context.Context, id int64) (*domain.Purchase, error) {
	var r purchaseRow
	err := q.get(ctx, &r, `SELECT `+purchaseColumns+` FROM purchases WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get purchase", err)
	}
	p, err := r.toDomain()
	if err != nil {
		return nil, persistErr("get purchase", err)
	}
	return &p, nil
}

// ListPurchases returns up to limit purchases, newest first. A limit of
// zero or less returns every row.
func (q *Queries) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if limit <= 0 {
		limit = -1
	}
	rows := []purchaseRow{}
	if err := q.selectAll(ctx, &rows, `SELECT `+purchaseColumns+`
		FROM purchases ORDER BY purchased_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, persistErr("list purchases", err)
	}
	out := make([]domain.Purchase, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return nil, persistErr("list purchases", err)
		}
		out = append(out, p)
	}
	return out, nil
}
