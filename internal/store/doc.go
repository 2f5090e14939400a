// Package store is the persistence wrapper: SQLite-backed durable storage
// for the catalog, orders, payments, rental sessions and the audit log.
//
// Every other component reaches storage through this package. Rows are
// mapped to typed records from internal/domain at this boundary.
//
// # Transactions
//
// WithTx opens one exclusive write transaction (BEGIN IMMEDIATE, via the
// driver's _txlock=immediate parameter), runs the caller's statements and
// commits, or rolls back on any error. Every multi-row mutation runs this
// way: stock decrement with its item insert, payment with the status flip,
// item re-parenting with the void.
//
// Inside WithTx, use the Tx's methods only. The pool holds a single
// connection, so a Store read issued while a transaction is open blocks
// until that transaction ends.
//
// # Stock
//
// stock_qty is the only field with a read-modify-write hazard. DecStock
// and IncStock mutate one product row, keyed by id, with a single clamped
// UPDATE and read the result back on the same handle.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks, then fail (default 5 seconds)
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema changes for existing databases are applied through PRAGMA
// user_version migrations.
package store
