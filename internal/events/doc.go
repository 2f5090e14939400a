// Package events is the fire-and-forget notification surface of the engine.
//
// The engine talks to a Notifier after every committed mutation. Bus fans
// those calls out to typed subscriber callbacks; Recorder keeps an ordered
// trace for tests and the scenario harness; Nop discards everything.
//
// Delivery is synchronous and in emission order, but carries no guarantee
// beyond that: a subscriber that panics is recovered and logged, and the
// operation that emitted the event has already committed.
package events
