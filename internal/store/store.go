package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tabengine/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added orders.discount_cents (discounts survive restart)
// 2 - Added payments.reference
const currentSchemaVersion = 2

// DefaultBusyTimeoutMS bounds how long a writer waits for the lock before
// the transaction fails with a PersistenceError.
const DefaultBusyTimeoutMS = 5000

// Store is the persistence wrapper around the SQLite database.
//
// Repository methods are promoted from Queries and run directly against
// the database. Use WithTx for anything that mutates more than one row.
type Store struct {
	Queries
	db *sqlx.DB
}

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	busyTimeoutMS int
}

// WithBusyTimeout sets how long a writer waits for the database lock.
func WithBusyTimeout(ms int) Option {
	return func(o *openOptions) {
		if ms > 0 {
			o.busyTimeoutMS = ms
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - BEGIN IMMEDIATE for every transaction (write lock taken up front)
//   - WAL mode so readers do not block the writer
//   - NORMAL synchronous mode
//   - a busy timeout for lock contention
//   - foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	o := openOptions{busyTimeoutMS: DefaultBusyTimeoutMS}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sqlx.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time. A single connection also
	// keeps :memory: databases alive for the lifetime of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, o.busyTimeoutMS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{Queries: Queries{q: db}, db: db}, nil
}

// dsn appends the driver parameters. _txlock=immediate makes every
// BeginTx issue BEGIN IMMEDIATE.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Tx is an open write transaction. Repository methods are promoted from
// Queries and run inside the transaction.
type Tx struct {
	Queries
	tx *sqlx.Tx
}

// WithTx runs fn inside one exclusive write transaction.
//
// The write lock is acquired before fn runs. fn's error is returned
// unchanged after rollback, so typed errors such as StockError reach the
// caller intact. Begin and commit failures are reported as
// PersistenceError. A panic inside fn rolls back and re-panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "begin", Err: err}
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err := fn(&Tx{Queries: Queries{q: sqlTx}, tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB, busyTimeoutMS int) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sqlx.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := addColumnIfMissing(db, "orders", "discount_cents", "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if version < 2 {
		if err := addColumnIfMissing(db, "payments", "reference", "TEXT"); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// addColumnIfMissing adds a column to databases created before it existed.
// Fresh databases already have it from schema.sql.
func addColumnIfMissing(db *sqlx.DB, table, column, decl string) error {
	var names []string
	if err := db.Select(&names, fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table)); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	for _, n := range names {
		if n == column {
			return nil
		}
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
