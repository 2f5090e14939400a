package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/tabengine/internal/domain"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Event lines for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

// Report renders the failure with the full event trace.
func (e *AssertionError) Report() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nEvents:\n")
	for i, line := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}

	return buf.String()
}

// evaluate checks one assertion against the result trace and the store.
func (h *Harness) evaluate(ctx context.Context, a Assertion, result *Result) error {
	switch a.Type {
	case AssertEventContains:
		return assertEventContains(result.Events(), a)
	case AssertEventOrder:
		return assertEventOrder(result.Events(), a)
	case AssertEventCount:
		return assertEventCount(result.Events(), a)
	}

	table := domain.NormalizeTableCode(a.Table)
	var actual any
	switch a.Type {
	case AssertStock:
		p, err := h.store.GetProduct(ctx, a.Product)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("product %q not found", a.Product)
		}
		actual = p.Stock()
	case AssertTotal:
		actual = h.engine.GetTotals(table).Total
	case AssertItems:
		actual = len(h.engine.GetItems(table))
	case AssertOpenOrders:
		n, err := h.store.CountOpenOrders(ctx, table)
		if err != nil {
			return err
		}
		actual = n
	case AssertPayments:
		var n int
		err := h.store.DB().GetContext(ctx, &n,
			`SELECT COUNT(*) FROM payments p JOIN orders o ON o.id = p.order_id WHERE o.table_code = ?`, table)
		if err != nil {
			return err
		}
		actual = n
	case AssertOrderStatus:
		var status string
		err := h.store.DB().GetContext(ctx, &status,
			`SELECT status FROM orders WHERE table_code = ? ORDER BY id DESC LIMIT 1`, table)
		if errors.Is(err, sql.ErrNoRows) {
			status = "none"
		} else if err != nil {
			return err
		}
		actual = status
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}

	if !expectEqual(a.Expect, actual) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %v", subject(a), a.Expect),
			Actual:   fmt.Sprint(actual),
			Trace:    result.Events(),
		}
	}
	return nil
}

func subject(a Assertion) string {
	if a.Type == AssertStock {
		return a.Type + " of " + a.Product
	}
	return a.Type + " of " + domain.NormalizeTableCode(a.Table)
}

// assertEventContains checks that the event line appears in the trace.
func assertEventContains(trace []string, a Assertion) error {
	for _, line := range trace {
		if line == a.Event {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertEventContains,
		Expected: fmt.Sprintf("event %q", a.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertEventOrder checks that events appear in the given relative order.
// Intervening events are allowed.
func assertEventOrder(trace []string, a Assertion) error {
	pos := 0
	for i, want := range a.Events {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("events in order %v", a.Events),
				Actual:   fmt.Sprintf("%q (position %d) missing or out of order", want, i),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertEventCount checks how many events of a kind were emitted.
func assertEventCount(trace []string, a Assertion) error {
	n := 0
	for _, line := range trace {
		if kindOf(line) == a.Kind {
			n++
		}
	}
	if !expectEqual(a.Expect, n) {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%v %s events", a.Expect, a.Kind),
			Actual:   fmt.Sprintf("%d", n),
			Trace:    trace,
		}
	}
	return nil
}

func kindOf(line string) string {
	kind, _, _ := strings.Cut(line, " ")
	return kind
}

// expectEqual compares a decoded YAML value with an observed one.
// Numbers compare by value regardless of their Go type.
func expectEqual(expected, actual any) bool {
	e, eok := number(expected)
	a, aok := number(actual)
	if eok && aok {
		return math.Abs(e-a) < 1e-9
	}
	return fmt.Sprint(expected) == fmt.Sprint(actual)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
