package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Bus is a Notifier that dispatches to registered callbacks.
//
// Each OnXxx method returns an unsubscribe function; the subscriber owns
// its registration and removes it when it goes away. Callbacks run on the
// emitting goroutine in registration order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	logger *zap.Logger

	tableState   []entry[func(string, TableState)]
	tableTotal   []entry[func(string, int64)]
	psState      []entry[func(string, bool)]
	invLow       []entry[func(StockEvent)]
	invRecovered []entry[func(StockEvent)]
	catalog      []entry[func()]
	tables       []entry[func([]string)]
}

type entry[F any] struct {
	id int
	fn F
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used to report subscriber panics.
func WithLogger(l *zap.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates an empty Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ Notifier = (*Bus)(nil)

func register[F any](b *Bus, list *[]entry[F], fn F) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	*list = append(*list, entry[F]{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, e := range *list {
				if e.id == id {
					*list = append((*list)[:i:i], (*list)[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshot copies the callbacks so dispatch runs without the lock and a
// subscriber may unsubscribe from inside its own callback.
func snapshot[F any](b *Bus, list *[]entry[F]) []F {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]F, len(*list))
	for i, e := range *list {
		out[i] = e.fn
	}
	return out
}

func (b *Bus) safely(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("subscriber panicked",
				zap.String("event", event),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// OnTableStateChanged registers fn for table occupancy changes.
func (b *Bus) OnTableStateChanged(fn func(table string, state TableState)) func() {
	return register(b, &b.tableState, fn)
}

// OnTableTotalChanged registers fn for table total changes.
func (b *Bus) OnTableTotalChanged(fn func(table string, totalCents int64)) func() {
	return register(b, &b.tableTotal, fn)
}

// OnPSStateChanged registers fn for session start/stop.
func (b *Bus) OnPSStateChanged(fn func(table string, active bool)) func() {
	return register(b, &b.psState, fn)
}

// OnInventoryLow registers fn for low-stock crossings.
func (b *Bus) OnInventoryLow(fn func(StockEvent)) func() {
	return register(b, &b.invLow, fn)
}

// OnInventoryRecovered registers fn for recovery crossings.
func (b *Bus) OnInventoryRecovered(fn func(StockEvent)) func() {
	return register(b, &b.invRecovered, fn)
}

// OnCatalogChanged registers fn for catalog refreshes.
func (b *Bus) OnCatalogChanged(fn func()) func() {
	return register(b, &b.catalog, fn)
}

// OnTablesChanged registers fn for roster changes.
func (b *Bus) OnTablesChanged(fn func(codes []string)) func() {
	return register(b, &b.tables, fn)
}

func (b *Bus) TableStateChanged(table string, state TableState) {
	for _, fn := range snapshot(b, &b.tableState) {
		b.safely(KindTableState, func() { fn(table, state) })
	}
}

func (b *Bus) TableTotalChanged(table string, totalCents int64) {
	for _, fn := range snapshot(b, &b.tableTotal) {
		b.safely(KindTableTotal, func() { fn(table, totalCents) })
	}
}

func (b *Bus) PSStateChanged(table string, active bool) {
	for _, fn := range snapshot(b, &b.psState) {
		b.safely(KindPSState, func() { fn(table, active) })
	}
}

func (b *Bus) InventoryLow(e StockEvent) {
	for _, fn := range snapshot(b, &b.invLow) {
		b.safely(KindInventoryLow, func() { fn(e) })
	}
}

func (b *Bus) InventoryRecovered(e StockEvent) {
	for _, fn := range snapshot(b, &b.invRecovered) {
		b.safely(KindInventoryRecovered, func() { fn(e) })
	}
}

func (b *Bus) CatalogChanged() {
	for _, fn := range snapshot(b, &b.catalog) {
		b.safely(KindCatalogChanged, fn)
	}
}

func (b *Bus) TablesChanged(codes []string) {
	for _, fn := range snapshot(b, &b.tables) {
		cp := append([]string(nil), codes...)
		b.safely(KindTablesChanged, func() { fn(cp) })
	}
}
