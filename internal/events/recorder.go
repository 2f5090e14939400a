package events

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/tabengine/internal/domain"
)

// Event kinds, also used as the wire names in harness traces.
const (
	KindTableState         = "table_state_changed"
	KindTableTotal         = "table_total_changed"
	KindPSState            = "ps_state_changed"
	KindInventoryLow       = "inventory_low"
	KindInventoryRecovered = "inventory_recovered"
	KindCatalogChanged     = "catalog_changed"
	KindTablesChanged      = "tables_changed"
)

// Event is one recorded notification.
type Event struct {
	Kind   string      `json:"kind"`
	Table  string      `json:"table,omitempty"`
	State  TableState  `json:"state,omitempty"`
	Total  *int64      `json:"total_cents,omitempty"`
	Active *bool       `json:"active,omitempty"`
	Stock  *StockEvent `json:"stock,omitempty"`
	Codes  []string    `json:"codes,omitempty"`
}

// String renders the event compactly, e.g. "table_total_changed T01 500".
func (e Event) String() string {
	parts := []string{e.Kind}
	if e.Table != "" {
		parts = append(parts, e.Table)
	}
	switch {
	case e.State != "":
		parts = append(parts, string(e.State))
	case e.Total != nil:
		parts = append(parts, fmt.Sprint(*e.Total))
	case e.Active != nil:
		parts = append(parts, fmt.Sprint(*e.Active))
	case e.Stock != nil:
		parts = append(parts, e.Stock.Product,
			domain.FormatQty(e.Stock.Before), domain.FormatQty(e.Stock.After), domain.FormatQty(e.Stock.Min))
	case e.Codes != nil:
		parts = append(parts, strings.Join(e.Codes, ","))
	}
	return strings.Join(parts, " ")
}

// Recorder is a Notifier that keeps every event in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Notifier = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Strings returns the recorded events rendered with Event.String.
func (r *Recorder) Strings() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// OfKind returns the recorded events of one kind.
func (r *Recorder) OfKind(kind string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *Recorder) TableStateChanged(table string, state TableState) {
	r.add(Event{Kind: KindTableState, Table: table, State: state})
}

func (r *Recorder) TableTotalChanged(table string, totalCents int64) {
	r.add(Event{Kind: KindTableTotal, Table: table, Total: &totalCents})
}

func (r *Recorder) PSStateChanged(table string, active bool) {
	r.add(Event{Kind: KindPSState, Table: table, Active: &active})
}

func (r *Recorder) InventoryLow(e StockEvent) {
	r.add(Event{Kind: KindInventoryLow, Stock: &e})
}

func (r *Recorder) InventoryRecovered(e StockEvent) {
	r.add(Event{Kind: KindInventoryRecovered, Stock: &e})
}

func (r *Recorder) CatalogChanged() {
	r.add(Event{Kind: KindCatalogChanged})
}

func (r *Recorder) TablesChanged(codes []string) {
	r.add(Event{Kind: KindTablesChanged, Codes: append([]string{}, codes...)})
}

// Multi fans each notification out to several notifiers in order.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) TableStateChanged(table string, state TableState) {
	for _, n := range m {
		n.TableStateChanged(table, state)
	}
}

func (m Multi) TableTotalChanged(table string, totalCents int64) {
	for _, n := range m {
		n.TableTotalChanged(table, totalCents)
	}
}

func (m Multi) PSStateChanged(table string, active bool) {
	for _, n := range m {
		n.PSStateChanged(table, active)
	}
}

func (m Multi) InventoryLow(e StockEvent) {
	for _, n := range m {
		n.InventoryLow(e)
	}
}

func (m Multi) InventoryRecovered(e StockEvent) {
	for _, n := range m {
		n.InventoryRecovered(e)
	}
}

func (m Multi) CatalogChanged() {
	for _, n := range m {
		n.CatalogChanged()
	}
}

func (m Multi) TablesChanged(codes []string) {
	for _, n := range m {
		n.TablesChanged(codes)
	}
}
