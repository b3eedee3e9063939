/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All domain error types in one place. Downstream packages (alerts,
  counting, inventory, api) reuse these sentinels so callers can classify
  failures with errors.Is regardless of which component produced them.

CATEGORIES:
  1. Validation   - bad input, rejected before any mutation
  2. Insufficient - a stock-out would drive a balance negative
  3. InvalidState - operation forbidden by the aggregate's current state
  4. NotFound     - referenced id does not exist
  5. Retryable    - transient store failures; never mixed with the above

Domain errors are never retried automatically. Store/IO failures wrap
ErrStoreUnavailable so callers can distinguish "retry later" from
"fix your request".
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input fails validation. Nothing is
	// mutated; the caller must fix the request.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is returned when a stock-out transaction or a
	// transfer would drive the balance below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidState is returned when an operation is attempted against an
	// aggregate whose state forbids it.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable wraps transient persistence failures. Unlike the
	// domain errors above, these may succeed on retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ProductID  string
	LocationID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, requested %s",
		StockKey{ProductID: e.ProductID, LocationID: e.LocationID},
		e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidStateError reports a forbidden state transition or operation.
type InvalidStateError struct {
	Entity    string // "transaction", "alert", "cycle count", ...
	ID        string
	State     string // current state
	Operation string // what was attempted
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s %s %s in state %q",
		e.Operation, e.Entity, e.ID, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the request rather
// than the system. These map to 4xx at the transport layer.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the operation might succeed on retry.
// Domain errors are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
