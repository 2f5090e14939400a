package order

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/metrics"
	"github.com/roach88/tabengine/internal/session"
	"github.com/roach88/tabengine/internal/store"
)

// References generates payment references.
// Implemented by UUIDv7References (production) and testutil.FixedReferences
// (tests).
type References interface {
	Next() string
}

// UUIDv7References returns time-ordered UUIDv7 references.
type UUIDv7References struct{}

// Next returns a new UUIDv7 string.
func (UUIDv7References) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine is the order engine bound to one store.
//
// Thread-safety model:
//   - every exported method is safe from any goroutine
//   - writers are serialized by mu; the snapshot ticker is just another writer
//   - notifications are delivered after mu is released, in emission order
type Engine struct {
	store    *store.Store
	catalog  *catalog.Catalog
	notifier events.Notifier
	clock    session.Clock
	logger   *zap.Logger
	refs     References
	meter    *session.Meter

	rounding      session.Rounding
	defaultTables int

	mu     sync.Mutex
	orders map[string]*openOrder
	tables []string
	outbox []func(events.Notifier)
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the receiver of engine notifications.
func WithNotifier(n events.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithClock sets the wall clock used for timestamps and session billing.
func WithClock(c session.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithReferences sets the payment reference generator.
func WithReferences(r References) Option {
	return func(e *Engine) {
		if r != nil {
			e.refs = r
		}
	}
}

// WithMinuteRounding sets how session time is rounded to billed minutes.
func WithMinuteRounding(r session.Rounding) Option {
	return func(e *Engine) {
		if r != "" {
			e.rounding = r
		}
	}
}

// WithDefaultTables sets the size of the roster used when none is stored.
func WithDefaultTables(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultTables = n
		}
	}
}

// New creates an Engine. It starts empty; call Rehydrate to load the open
// orders, sessions and roster persisted in the store.
func New(s *store.Store, c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		catalog:       c,
		notifier:      events.Nop{},
		clock:         session.SystemClock{},
		logger:        zap.NewNop(),
		refs:          UUIDv7References{},
		rounding:      session.RoundCeil,
		defaultTables: domain.DefaultTableCount,
		orders:        make(map[string]*openOrder),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.meter = session.NewMeter(e.rounding)
	e.tables = domain.DefaultTableCodes(e.defaultTables)
	return e
}

// lock acquires the writer lock. Pair with unlock, never mu.Unlock.
func (e *Engine) lock() {
	e.mu.Lock()
}

// unlock releases the writer lock and delivers queued notifications.
func (e *Engine) unlock() {
	pending := e.outbox
	e.outbox = nil
	e.syncGauges()
	e.mu.Unlock()
	for _, fn := range pending {
		fn(e.notifier)
	}
}

func (e *Engine) emit(fn func(n events.Notifier)) {
	e.outbox = append(e.outbox, fn)
}

func (e *Engine) emitTableState(table string, state events.TableState) {
	e.emit(func(n events.Notifier) { n.TableStateChanged(table, state) })
}

// emitTotal queues the total of table as it is now.
func (e *Engine) emitTotal(table string) {
	var total int64
	if o := e.orders[table]; o != nil {
		total = o.totals().Total
	}
	e.emit(func(n events.Notifier) { n.TableTotalChanged(table, total) })
}

func (e *Engine) emitSession(table string, active bool) {
	e.emit(func(n events.Notifier) { n.PSStateChanged(table, active) })
}

// emitStock queues the notifications a stock move calls for.
func (e *Engine) emitStock(ch *catalog.StockChange) {
	if ch == nil {
		return
	}
	if ch.CatalogVisible() {
		e.emit(func(n events.Notifier) { n.CatalogChanged() })
	}
	ev := ch.Event()
	switch {
	case ch.Low():
		e.emit(func(n events.Notifier) { n.InventoryLow(ev) })
	case ch.Recovered():
		e.emit(func(n events.Notifier) { n.InventoryRecovered(ev) })
	}
}

func (e *Engine) syncGauges() {
	metrics.SetOpenTables(len(e.orders))
	metrics.SetActiveSessions(e.meter.Len())
}

// openTables returns the codes of tables with an open order, sorted.
func (e *Engine) openTables() []string {
	out := make([]string, 0, len(e.orders))
	for code := range e.orders {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func validTable(table string) (string, error) {
	code := domain.NormalizeTableCode(table)
	if code == "" {
		return "", domain.NewValidationError("table", "table code is required")
	}
	return code, nil
}
