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

// TableCodesKey is the settings key holding the roster as a JSON array.
const TableCodesKey = "table_codes"

// OpenTable is an open table and its current total.
type OpenTable struct {
	Table      string `json:"table"`
	TotalCents int64  `json:"total_cents"`
}

// TableCodes returns the roster.
func (e *Engine) TableCodes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tables)
}

// SetTableCodes replaces the roster. Codes are normalized and
// de-duplicated; an empty result falls back to the default roster, and
// tables with an open order are always kept. The stored roster is returned.
func (e *Engine) SetTableCodes(ctx context.Context, codes []string, actor string) ([]string, error) {
	e.lock()
	defer e.unlock()

	cleaned := domain.NormalizeTableCodes(codes)
	if len(cleaned) == 0 {
		cleaned = domain.DefaultTableCodes(e.defaultTables)
	}
	for _, open := range e.openTables() {
		if !slices.Contains(cleaned, open) {
			cleaned = append(cleaned, open)
		}
	}
	if slices.Equal(cleaned, e.tables) {
		return slices.Clone(e.tables), nil
	}

	previous, err := json.Marshal(e.tables)
	if err != nil {
		return nil, err
	}
	next, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}
	err = e.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.SetSetting(ctx, TableCodesKey, string(next)); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			At: e.clock.Now(), Actor: actor, Action: "tables_update", EntityType: "table_map",
			OldValue: string(previous), NewValue: string(next),
		})
	})
	if err != nil {
		return nil, err
	}
	e.tables = cleaned
	e.emitTables()
	return slices.Clone(cleaned), nil
}

func (e *Engine) emitTables() {
	codes := slices.Clone(e.tables)
	e.emit(func(n events.Notifier) { n.TablesChanged(codes) })
}

// ListOpenTables returns the tables with an open order, sorted, leaving out
// exclude.
func (e *Engine) ListOpenTables(exclude string) []string {
	skip := domain.NormalizeTableCode(exclude)
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.openTables()
	return slices.DeleteFunc(out, func(code string) bool { return code == skip })
}

// ListOpenTablesWithTotals is ListOpenTables with each table's total.
func (e *Engine) ListOpenTablesWithTotals(exclude string) []OpenTable {
	skip := domain.NormalizeTableCode(exclude)
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []OpenTable
	for _, code := range e.openTables() {
		if code == skip {
			continue
		}
		out = append(out, OpenTable{Table: code, TotalCents: e.orders[code].totals().Total})
	}
	return out
}

// loadTableCodes reads the stored roster. A missing or unreadable value
// yields the default roster.
func (e *Engine) loadTableCodes(ctx context.Context) ([]string, error) {
	raw, ok, err := e.store.Setting(ctx, TableCodesKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return domain.DefaultTableCodes(e.defaultTables), nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		e.logger.Warn("stored table roster is not a JSON list, using default", zap.Error(err))
		return domain.DefaultTableCodes(e.defaultTables), nil
	}
	cleaned := domain.NormalizeTableCodes(codes)
	if len(cleaned) == 0 {
		return domain.DefaultTableCodes(e.defaultTables), nil
	}
	return cleaned, nil
}
