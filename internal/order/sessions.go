package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/metrics"
	"github.com/roach88/tabengine/internal/session"
	"github.com/roach88/tabengine/internal/store"
)

// sessionClose is a committed-pending close of a running session.
type sessionClose struct {
	table string
	bill  session.Bill
	add   *itemAdd
}

// closeSessionTx bills the session running on table as an untracked line
// and deletes its row. It returns nil when no session runs there.
func (e *Engine) closeSessionTx(ctx context.Context, tx *store.Tx, table, actor string) (*sessionClose, error) {
	s, ok := e.meter.Get(table)
	if !ok {
		return nil, nil
	}
	rate, err := e.catalog.RateTx(ctx, tx, s.Mode)
	if err != nil {
		e.logger.Warn("rate lookup failed, billing zero",
			zap.String("table", table),
			zap.String("mode", string(s.Mode)),
			zap.Error(err))
		rate = nil
	}
	bill := session.Compute(s, e.clock.Now(), rate, e.meter.Rounding())
	if bill.RateMissing {
		e.logger.Warn("no rate configured, billing zero",
			zap.String("table", table),
			zap.String("mode", string(s.Mode)))
	}

	add, err := e.addItemTx(ctx, tx, table, bill.Label, bill.AmountCents, 1, "", actor)
	if err != nil {
		return nil, err
	}
	if err := tx.DeleteSession(ctx, table); err != nil {
		return nil, err
	}
	return &sessionClose{table: table, bill: bill, add: add}, nil
}

func (e *Engine) applySessionClose(c *sessionClose) {
	if c == nil {
		return
	}
	e.applyAdd(c.add)
	e.meter.Remove(c.table)
	metrics.IncSessionBills(string(c.bill.Mode))
	e.emitSession(c.table, false)
	e.logger.Debug("session billed",
		zap.String("table", c.table),
		zap.String("mode", string(c.bill.Mode)),
		zap.Int64("minutes", c.bill.Minutes),
		zap.Int64("amount_cents", c.bill.AmountCents))
}

// PSStart starts a session in mode on table. A session already running
// there is billed first.
func (e *Engine) PSStart(ctx context.Context, table string, mode domain.Mode, actor string) error {
	return e.startSession(ctx, table, mode, actor)
}

// PSSwitch bills the running session of table and starts a fresh one in
// mode with no accumulated time.
func (e *Engine) PSSwitch(ctx context.Context, table string, mode domain.Mode, actor string) error {
	return e.startSession(ctx, table, mode, actor)
}

func (e *Engine) startSession(ctx context.Context, table string, mode domain.Mode, actor string) error {
	code, err := validTable(table)
	if err != nil {
		return err
	}
	m, err := domain.ParseMode(string(mode))
	if err != nil {
		return err
	}

	e.lock()
	defer e.unlock()

	next := domain.Session{TableCode: code, Mode: m, StartedAt: e.clock.Now()}
	var closed *sessionClose
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		closed, err = e.closeSessionTx(ctx, tx, code, actor)
		if err != nil {
			return err
		}
		return tx.UpsertSession(ctx, next)
	})
	if err != nil {
		return err
	}
	e.applySessionClose(closed)
	e.meter.Put(next)
	e.emitSession(code, true)
	return nil
}

// PSStop bills and ends the session on table. It reports false when no
// session runs there.
func (e *Engine) PSStop(ctx context.Context, table, actor string) (bool, error) {
	code := domain.NormalizeTableCode(table)

	e.lock()
	defer e.unlock()

	if _, ok := e.meter.Get(code); !ok {
		return false, nil
	}
	var closed *sessionClose
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		closed, err = e.closeSessionTx(ctx, tx, code, actor)
		return err
	})
	if err != nil {
		return false, err
	}
	e.applySessionClose(closed)
	return true, nil
}

// SnapshotSessions folds the running time of every session into its
// accumulated seconds and persists the result, bounding how much time a
// crash can lose to one snapshot interval.
func (e *Engine) SnapshotSessions(ctx context.Context) error {
	e.lock()
	defer e.unlock()

	if e.meter.Len() == 0 {
		return nil
	}
	folded := e.meter.Fold(e.clock.Now())
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, s := range folded {
			if err := tx.UpsertSession(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.meter.Apply(folded)
	return nil
}

// RunSnapshots snapshots sessions every interval until ctx is done, then
// takes a last snapshot. Failures are logged and retried on the next tick.
func (e *Engine) RunSnapshots(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return domain.NewValidationError("snapshot_interval", "interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := e.SnapshotSessions(context.WithoutCancel(ctx)); err != nil {
				e.logger.Error("final session snapshot failed", zap.Error(err))
			}
			return nil
		case <-ticker.C:
			if err := e.SnapshotSessions(ctx); err != nil {
				e.logger.Error("session snapshot failed", zap.Error(err))
			}
		}
	}
}

// ActiveSession returns the session running on table.
func (e *Engine) ActiveSession(table string) (domain.Session, bool) {
	return e.meter.Get(domain.NormalizeTableCode(table))
}

// ActiveSessions returns every running session ordered by table.
func (e *Engine) ActiveSessions() []domain.Session {
	return e.meter.All()
}

// PendingBill prices the running session on table as of now without
// closing it.
func (e *Engine) PendingBill(ctx context.Context, table string) (session.Bill, bool, error) {
	code := domain.NormalizeTableCode(table)
	s, ok := e.meter.Get(code)
	if !ok {
		return session.Bill{}, false, nil
	}
	rate, err := e.catalog.Rate(ctx, s.Mode)
	if err != nil {
		return session.Bill{}, false, err
	}
	return session.Compute(s, e.clock.Now(), rate, e.meter.Rounding()), true, nil
}
