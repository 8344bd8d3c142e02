/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / the helpers at the bottom; the API
  layer maps classes to HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors - Malformed or out-of-range input, caught before
     any remote call, no partial state change
  2. Not-found errors  - Referenced lot or config key does not exist
  3. Stock errors      - Requested sale exceeds remaining pieces
  4. Store errors      - Any failed remote call (network, auth, rate
     limit, malformed response); retry is left to the caller

SEE ALSO:
  - service.go: Raises these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock is returned when a sale requests more pieces
	// than the lot has remaining.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrTransientStore is returned when a remote store call fails.
	// The operation may succeed on manual retry.
	ErrTransientStore = errors.New("store operation failed")

	// ErrCounterMalformed is returned when a sequence counter value
	// cannot be parsed back into a numeric suffix.
	ErrCounterMalformed = errors.New("malformed sequence counter")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which input field failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError carries the current remaining count so the
// caller can adjust the requested quantity.
type InsufficientStockError struct {
	LotID     string
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("lot %s: requested %d pieces, %d remaining",
		e.LotID, e.Requested, e.Remaining)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StoreError wraps a failed tabular store call with its operation and table.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransientStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrTransientStore }

func storeErr(op, table string, err error) error {
	return &StoreError{Op: op, Table: table, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore)
}
