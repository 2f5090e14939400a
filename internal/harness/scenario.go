package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
// A scenario seeds a fresh store, drives the order engine through a list
// of steps and then asserts on the recorded trace and the stored state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fake clock's start time. Zero uses a fixed reference
	// time so traces are reproducible.
	Now time.Time `yaml:"now,omitempty"`

	// Rounding is the session minute rounding, "ceil" (default) or
	// "floor".
	Rounding string `yaml:"rounding,omitempty"`

	// Setup seeds the catalog before the first step. Setup does not
	// appear in the trace.
	Setup Setup `yaml:"setup,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: stock, total, order_status, open_orders, payments,
	// items, event_contains, event_order, event_count
	Assertions []Assertion `yaml:"assertions"`
}

// Setup describes the catalog a scenario starts from.
type Setup struct {
	// Categories are created first, in order.
	Categories []string `yaml:"categories,omitempty"`

	// Products are created in order. A missing category is created.
	Products []ProductSetup `yaml:"products,omitempty"`

	// Rates maps a rental mode to its hourly price in cents.
	Rates map[string]int64 `yaml:"rates,omitempty"`

	// Tables replaces the default table roster.
	Tables []string `yaml:"tables,omitempty"`
}

// ProductSetup is one product seeded into the catalog.
type ProductSetup struct {
	Category   string  `yaml:"category"`
	Name       string  `yaml:"name"`
	Price      int64   `yaml:"price"`
	TrackStock bool    `yaml:"track_stock,omitempty"`
	Stock      float64 `yaml:"stock,omitempty"`
	MinStock   float64 `yaml:"min_stock,omitempty"`
}

// Step is one scenario step. Exactly one of Op, Advance or Restart is set.
type Step struct {
	// Op names the engine operation to invoke (see the Op* constants).
	Op string `yaml:"op,omitempty"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// ExpectError is the error category the operation must fail with:
	// "stock", "validation" or "persistence". Empty means the operation
	// must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Advance moves the fake clock forward.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Restart closes the store and rehydrates a new engine from disk.
	Restart bool `yaml:"restart,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stock": stock of Product equals Expect
	// - "total": current total of Table equals Expect
	// - "order_status": status of the latest order of Table equals Expect
	// - "open_orders": number of open orders of Table equals Expect
	// - "payments": number of payments recorded for Table equals Expect
	// - "items": number of items on the open order of Table equals Expect
	// - "event_contains": Event appears in the trace
	// - "event_order": Events appear in the trace in this relative order
	// - "event_count": events of Kind appear exactly Expect times
	Type string `yaml:"type"`

	Table   string   `yaml:"table,omitempty"`
	Product string   `yaml:"product,omitempty"`
	Event   string   `yaml:"event,omitempty"`
	Kind    string   `yaml:"kind,omitempty"`
	Events  []string `yaml:"events,omitempty"`

	// Expect is the expected value: a number for counts, totals and
	// stock, a status string for order_status.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStock         = "stock"
	AssertTotal         = "total"
	AssertOrderStatus   = "order_status"
	AssertOpenOrders    = "open_orders"
	AssertPayments      = "payments"
	AssertItems         = "items"
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
)

// Operation names accepted in steps.
const (
	OpAddItem       = "add_item"
	OpRemoveItem    = "remove_item"
	OpUpdateItem    = "update_item"
	OpApplyDiscount = "apply_discount"
	OpClearDiscount = "clear_discount"
	OpSettle        = "settle"
	OpMergeTables   = "merge_tables"
	OpPSStart       = "ps_start"
	OpPSSwitch      = "ps_switch"
	OpPSStop        = "ps_stop"
	OpSnapshot      = "snapshot"
	OpSetTables     = "set_table_codes"
)

var knownOps = map[string]bool{
	OpAddItem: true, OpRemoveItem: true, OpUpdateItem: true,
	OpApplyDiscount: true, OpClearDiscount: true, OpSettle: true,
	OpMergeTables: true, OpPSStart: true, OpPSSwitch: true, OpPSStop: true,
	OpSnapshot: true, OpSetTables: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields so typos like "assertion:" fail loudly.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must have at least one step")
	}
	switch s.Rounding {
	case "", "ceil", "floor":
	default:
		return fmt.Errorf("rounding must be ceil or floor, got %q", s.Rounding)
	}
	for i, p := range s.Setup.Products {
		if p.Name == "" || p.Category == "" {
			return fmt.Errorf("setup.products[%d]: category and name are required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Op != "" {
		set++
	}
	if step.Advance != 0 {
		set++
	}
	if step.Restart {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of op, advance or restart is required")
	}
	if step.Advance < 0 {
		return fmt.Errorf("advance must be positive")
	}
	if step.Op != "" && !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	switch step.ExpectError {
	case "", "stock", "validation", "persistence":
	default:
		return fmt.Errorf("expect_error must be stock, validation or persistence, got %q", step.ExpectError)
	}
	if step.ExpectError != "" && step.Op == "" {
		return fmt.Errorf("expect_error requires op")
	}
	return nil
}

// validateAssertion checks assertion-specific required fields.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertStock:
		if a.Product == "" {
			return fmt.Errorf("stock requires product field")
		}
		if a.Expect == nil {
			return fmt.Errorf("stock requires expect field")
		}
	case AssertTotal, AssertOrderStatus, AssertOpenOrders, AssertPayments, AssertItems:
		if a.Table == "" {
			return fmt.Errorf("%s requires table field", a.Type)
		}
		if a.Expect == nil {
			return fmt.Errorf("%s requires expect field", a.Type)
		}
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("event_contains requires event field")
		}
	case AssertEventOrder:
		if len(a.Events) < 2 {
			return fmt.Errorf("event_order requires at least 2 events")
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("event_count requires kind field")
		}
		if a.Expect == nil {
			return fmt.Errorf("event_count requires expect field")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}
