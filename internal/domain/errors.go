package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode categorizes engine errors for callers and the CLI.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input rejected before any
	// transaction opened.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeStock indicates insufficient tracked inventory. Nothing was
	// changed.
	ErrCodeStock ErrorCode = "STOCK"

	// ErrCodeNotFound indicates a referenced record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodePersistence indicates a lock, transaction or driver failure.
	ErrCodePersistence ErrorCode = "PERSISTENCE"
)

// ErrNotFound is returned by lookups whose callers need to tell absence
// apart from an empty result. Mutating operations report absence as a
// false result instead.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrCodeValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCodeValidation, e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StockError reports that a tracked product cannot cover the requested
// quantity. The enclosing transaction never commits.
type StockError struct {
	Product   string
	Requested float64
	Available float64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: insufficient stock for %q (requested %s, available %s)",
		ErrCodeStock, e.Product, FormatQty(e.Requested), FormatQty(e.Available))
}

// PersistenceError wraps a storage failure after rollback.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCodePersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStockError returns true if err is or wraps a StockError.
func IsStockError(err error) bool {
	var se *StockError
	return errors.As(err, &se)
}

// IsPersistenceError returns true if err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// CodeOf returns the ErrorCode for err, or "" for unclassified errors.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return ErrCodeValidation
	case IsStockError(err):
		return ErrCodeStock
	case IsNotFound(err):
		return ErrCodeNotFound
	case IsPersistenceError(err):
		return ErrCodePersistence
	default:
		return ""
	}
}

// FormatQty renders a quantity without trailing zeros.
func FormatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
