package harness

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/order"
	"github.com/roach88/tabengine/internal/session"
	"github.com/roach88/tabengine/internal/store"
	"github.com/roach88/tabengine/internal/testutil"
)

// actor is recorded on every row the harness writes.
const actor = "harness"

// Harness is the scenario execution engine.
// It runs one scenario against a real store and order engine with a
// fake clock and predictable payment references.
type Harness struct {
	path     string
	store    *store.Store
	catalog  *catalog.Catalog
	engine   *order.Engine
	clock    *testutil.FakeClock
	refs     *testutil.FixedReferences
	rec      *events.Recorder
	rounding session.Rounding
	logger   *zap.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger handed to the catalog and the engine.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh database file in a temporary
// directory, so restart steps reopen real on-disk state.
//
// Execution flow:
//  1. Create a fresh store and rehydrate an engine over it
//  2. Seed the catalog, rates and table roster from setup
//  3. Execute steps, recording each step and the events it caused
//  4. Evaluate assertions against the trace and the store
//
// The returned error covers infrastructure failures only. Unexpected step
// outcomes and failed assertions are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "tabengine-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	rounding := session.RoundCeil
	if scenario.Rounding != "" {
		rounding, err = session.ParseRounding(scenario.Rounding)
		if err != nil {
			return nil, err
		}
	}

	h := &Harness{
		path:     filepath.Join(dir, "scenario.db"),
		clock:    testutil.NewFakeClock(scenario.Now),
		refs:     testutil.NewFixedReferences(),
		rec:      events.NewRecorder(),
		rounding: rounding,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.open(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if h.store != nil {
			h.store.Close()
		}
	}()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	h.rec.Reset()

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(ctx, a, result); err != nil {
			result.AddError("assertion %d (%s): %v", i, a.Type, err)
		}
	}

	h.logger.Debug("scenario finished",
		zap.String("scenario", scenario.Name),
		zap.Bool("pass", result.Pass),
		zap.Int("trace", len(result.Trace)))
	return result, nil
}

// open (re)opens the store and rehydrates a new engine over it.
func (h *Harness) open(ctx context.Context) error {
	s, err := store.Open(h.path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	h.store = s
	h.catalog = catalog.New(s,
		catalog.WithNotifier(h.rec),
		catalog.WithLogger(h.logger))
	h.engine = order.New(s, h.catalog,
		order.WithNotifier(h.rec),
		order.WithClock(h.clock),
		order.WithReferences(h.refs),
		order.WithMinuteRounding(h.rounding),
		order.WithLogger(h.logger))
	return h.engine.Rehydrate(ctx)
}

func (h *Harness) restart(ctx context.Context) error {
	if err := h.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	h.store = nil
	return h.open(ctx)
}

// executeSetup seeds categories, products, rates and the roster.
func (h *Harness) executeSetup(ctx context.Context, setup Setup) error {
	categories := map[string]int64{}
	ensure := func(name string) (int64, error) {
		if id, ok := categories[name]; ok {
			return id, nil
		}
		c, err := h.catalog.CreateCategory(ctx, name, actor)
		if err != nil {
			return 0, fmt.Errorf("category %q: %w", name, err)
		}
		categories[name] = c.ID
		return c.ID, nil
	}

	for _, name := range setup.Categories {
		if _, err := ensure(name); err != nil {
			return err
		}
	}
	for _, p := range setup.Products {
		catID, err := ensure(p.Category)
		if err != nil {
			return err
		}
		_, err = h.catalog.CreateProduct(ctx, catalog.ProductInput{
			CategoryID: catID,
			Name:       p.Name,
			PriceCents: p.Price,
			TrackStock: p.TrackStock,
			StockQty:   p.Stock,
			MinStock:   p.MinStock,
		}, actor)
		if err != nil {
			return fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	for code, cents := range setup.Rates {
		mode, err := domain.ParseMode(code)
		if err != nil {
			return err
		}
		if err := h.catalog.SetRate(ctx, mode, "", cents, actor); err != nil {
			return fmt.Errorf("rate %s: %w", code, err)
		}
	}
	if len(setup.Tables) > 0 {
		if _, err := h.engine.SetTableCodes(ctx, setup.Tables, actor); err != nil {
			return fmt.Errorf("tables: %w", err)
		}
	}
	return nil
}

// executeStep runs one step and records it with the events it caused.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	switch {
	case step.Advance > 0:
		h.clock.Advance(step.Advance)
		result.record(TraceEntry{Type: TraceStep, Op: "advance", Args: map[string]any{"by": step.Advance}})
		return nil
	case step.Restart:
		if err := h.restart(ctx); err != nil {
			return err
		}
		result.record(TraceEntry{Type: TraceStep, Op: "restart", Outcome: "ok"})
		h.drain(result)
		return nil
	}

	outcome, err := h.invoke(ctx, step)
	code := strings.ToLower(string(domain.CodeOf(err)))
	switch {
	case err != nil && code == "":
		outcome = "error"
		result.AddError("step %d (%s): %v", i, step.Op, err)
	case err != nil:
		outcome = "error " + code
		if step.ExpectError != code {
			result.AddError("step %d (%s): unexpected error: %v", i, step.Op, err)
		}
	case step.ExpectError != "":
		result.AddError("step %d (%s): expected %s error, got %s", i, step.Op, step.ExpectError, outcome)
	}

	result.record(TraceEntry{Type: TraceStep, Op: step.Op, Args: step.Args, Outcome: outcome})
	h.drain(result)
	return nil
}

// drain moves the recorded events into the trace.
func (h *Harness) drain(result *Result) {
	for _, e := range h.rec.Strings() {
		result.record(TraceEntry{Type: TraceEvent, Event: e})
	}
	h.rec.Reset()
}

// invoke dispatches a step to the engine and renders its outcome.
func (h *Harness) invoke(ctx context.Context, step Step) (string, error) {
	args := arguments(step.Args)
	table := args.str("table")

	switch step.Op {
	case OpAddItem:
		qty := 1.0
		if args.has("qty") {
			qty = args.num("qty")
		}
		product := args.str("product")
		price, err := h.price(ctx, args, product)
		if err != nil {
			return "", err
		}
		return "ok", h.engine.AddItem(ctx, table, product, price, qty, args.str("note"), actor)
	case OpRemoveItem:
		return boolOutcome(h.engine.RemoveItem(ctx, table, args.index(), actor))
	case OpUpdateItem:
		var qty *float64
		var note *string
		if args.has("qty") {
			q := args.num("qty")
			qty = &q
		}
		if args.has("note") {
			n := args.str("note")
			note = &n
		}
		return boolOutcome(h.engine.UpdateItem(ctx, table, args.index(), qty, note, actor))
	case OpApplyDiscount:
		return boolOutcome(h.engine.ApplyDiscount(ctx, table, int64(args.num("amount"))))
	case OpClearDiscount:
		return boolOutcome(h.engine.ClearDiscount(ctx, table))
	case OpSettle:
		receipt, err := h.engine.Settle(ctx, table, args.str("method"), actor)
		if err != nil || receipt == nil {
			return "none", err
		}
		return fmt.Sprintf("paid %s %d", receipt.Reference, receipt.Amount), nil
	case OpMergeTables:
		return boolOutcome(h.engine.MergeTables(ctx, args.str("target"), args.str("source"), actor))
	case OpPSStart:
		return "ok", h.engine.PSStart(ctx, table, domain.Mode(args.str("mode")), actor)
	case OpPSSwitch:
		return "ok", h.engine.PSSwitch(ctx, table, domain.Mode(args.str("mode")), actor)
	case OpPSStop:
		return boolOutcome(h.engine.PSStop(ctx, table, actor))
	case OpSnapshot:
		return "ok", h.engine.SnapshotSessions(ctx)
	case OpSetTables:
		codes, err := h.engine.SetTableCodes(ctx, args.strs("codes"), actor)
		return strings.Join(codes, ","), err
	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// price returns the price argument, falling back to the catalog price of
// product.
func (h *Harness) price(ctx context.Context, args arguments, product string) (int64, error) {
	if args.has("price") {
		return int64(args.num("price")), nil
	}
	p, err := h.catalog.GetProduct(ctx, product)
	if err != nil || p == nil {
		return 0, err
	}
	return p.PriceCents, nil
}

func boolOutcome(ok bool, err error) (string, error) {
	return fmt.Sprint(ok), err
}

// arguments reads typed values out of decoded YAML step args.
type arguments map[string]any

func (a arguments) has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a arguments) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// num returns a numeric argument, NaN if it is missing or not a number so
// the engine rejects it as invalid input.
func (a arguments) num(key string) float64 {
	switch v := a[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return math.NaN()
	}
}

// index returns the item index argument, -1 if it is missing.
func (a arguments) index() int {
	n := a.num("index")
	if math.IsNaN(n) {
		return -1
	}
	return int(n)
}

func (a arguments) strs(key string) []string {
	raw, _ := a[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}
