// Package order implements the order engine: per-table open orders, item
// changes with stock enforcement, discounts, merges, settlement, timed
// session billing and the table roster.
//
// An Engine is constructed explicitly with New and shared by reference.
// Every mutation runs in one store transaction; the in-memory view is only
// updated after the commit succeeds, so a failed call leaves both the store
// and the engine as they were.
//
// Notifications are queued while the engine lock is held and delivered in
// emission order once it is released, so subscribers may read from the
// engine.
package order
