package harness

import (
	"fmt"
	"sort"
	"strings"
)

// Trace entry types.
const (
	TraceStep  = "step"
	TraceEvent = "event"
)

// TraceEntry is one line of a scenario trace: either a step the scenario
// drove or a notification the engine emitted while running it.
type TraceEntry struct {
	Seq     int            `json:"seq"`
	Type    string         `json:"type"`
	Op      string         `json:"op,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Event   string         `json:"event,omitempty"`
}

// String renders the entry the way golden traces store it, e.g.
// "step add_item product=Espresso qty=1 table=T01 -> ok".
func (e TraceEntry) String() string {
	if e.Type == TraceEvent {
		return "event " + e.Event
	}
	var b strings.Builder
	b.WriteString("step ")
	b.WriteString(e.Op)
	keys := make([]string, 0, len(e.Args))
	for k := range e.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Args[k])
	}
	if e.Outcome != "" {
		b.WriteString(" -> ")
		b.WriteString(e.Outcome)
	}
	return b.String()
}

// Result holds the outcome of running a scenario.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace is the ordered record of steps and emitted events.
	Trace []TraceEntry `json:"trace"`

	// Errors describes every failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError marks the result failed with a formatted message.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Events returns the event lines of the trace in order.
func (r *Result) Events() []string {
	var out []string
	for _, e := range r.Trace {
		if e.Type == TraceEvent {
			out = append(out, e.Event)
		}
	}
	return out
}

func (r *Result) record(e TraceEntry) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
