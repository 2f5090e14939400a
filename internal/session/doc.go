// Package session meters time-based console rentals.
//
// A Meter keeps the in-memory set of running sessions, one per table. It
// never touches storage: the order engine persists every change inside its
// own transaction and only then tells the Meter to adopt it, so a failed
// commit leaves the Meter untouched.
//
// Billing converts elapsed seconds into whole minutes (at least one) and
// prices them at the hourly rate of the session's mode.
package session
