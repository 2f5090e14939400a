package order

import (
	"context"
	"encoding/json"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/store"
)

// Rehydrate replaces the in-memory state with what the store holds: the
// roster, every open order with its items and discount, and every running
// session. Tables that are open or run a session but are missing from the
// roster are appended to it and the roster is saved.
func (e *Engine) Rehydrate(ctx context.Context) error {
	tables, err := e.loadTableCodes(ctx)
	if err != nil {
		return err
	}
	open, err := e.store.OpenOrders(ctx)
	if err != nil {
		return err
	}
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		return err
	}

	e.lock()
	defer e.unlock()

	e.orders = make(map[string]*openOrder, len(open))
	e.meter.Reset()
	e.tables = tables

	for _, o := range open {
		e.orders[o.TableCode] = newOpenOrder(o, e.logger)
		e.emitTableState(o.TableCode, events.TableOccupied)
		e.emitTotal(o.TableCode)
	}
	now := e.clock.Now()
	for _, s := range sessions {
		if s.StartedAt.IsZero() {
			s.StartedAt = now
		}
		e.meter.Put(s)
		e.emitSession(s.TableCode, true)
	}

	var missing []string
	for _, code := range e.openTables() {
		if !slices.Contains(e.tables, code) && !slices.Contains(missing, code) {
			missing = append(missing, code)
		}
	}
	for _, s := range e.meter.All() {
		if !slices.Contains(e.tables, s.TableCode) && !slices.Contains(missing, s.TableCode) {
			missing = append(missing, s.TableCode)
		}
	}
	if len(missing) > 0 {
		e.tables = append(e.tables, missing...)
		raw, err := json.Marshal(e.tables)
		if err != nil {
			return err
		}
		err = e.store.WithTx(ctx, func(tx *store.Tx) error {
			return tx.SetSetting(ctx, TableCodesKey, string(raw))
		})
		if err != nil {
			return err
		}
		e.emitTables()
	}

	e.logger.Info("engine rehydrated",
		zap.Int("open_orders", len(e.orders)),
		zap.Int("sessions", e.meter.Len()),
		zap.Int("tables", len(e.tables)))
	return nil
}

// Snapshot is a read-only view of the engine state.
type Snapshot struct {
	Tables   []string         `json:"tables"`
	Open     []domain.Order   `json:"open"`
	Sessions []domain.Session `json:"sessions"`
}

// Snapshot returns copies of the roster, open orders and running sessions.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Snapshot{Tables: slices.Clone(e.tables), Sessions: e.meter.All()}
	for _, code := range e.openTables() {
		o := e.orders[code].order
		o.Items = slices.Clone(o.Items)
		out.Open = append(out.Open, o)
	}
	return out
}
