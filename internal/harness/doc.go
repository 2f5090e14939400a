// Package harness runs YAML conformance scenarios against the order
// engine.
//
// A scenario seeds a fresh on-disk store, drives a real engine through a
// list of steps on a fake clock, and records a trace of every step and
// every notification the engine emitted. Assertions then check the trace
// and the stored state, and the trace can be compared byte for byte with
// a golden file.
//
// # Scenario Format
//
//	name: espresso_stock
//	description: Espresso runs out after two cups
//	setup:
//	  rates: {P2: 6000}
//	  products:
//	    - {category: Coffee, name: Espresso, price: 250, track_stock: true, stock: 2, min_stock: 1}
//	steps:
//	  - op: add_item
//	    args: {table: T01, product: Espresso, qty: 1}
//	  - op: add_item
//	    args: {table: T01, product: Espresso, qty: 1}
//	    expect_error: stock
//	  - advance: 90s
//	  - restart: true
//	assertions:
//	  - type: stock
//	    product: Espresso
//	    expect: 0
//	  - type: event_contains
//	    event: inventory_low Espresso 2 1 1
//
// # Golden Files
//
// The golden trace of scenarios/foo.yaml lives at scenarios/golden/foo.golden.
// Each line is one trace entry:
//
//	step add_item product=Espresso qty=1 table=T01 -> ok
//	event table_state_changed T01 occupied
//
// Payment references are numbered ref-0001, ref-0002, ... and the clock
// starts at a fixed instant, so traces are identical between runs.
package harness
