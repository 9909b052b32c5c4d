/*
errors.go - Error types for the payroll engine

ERROR CATEGORIES:
  1. Validation errors - bad construction input (ErrInvalidArgument)
  2. State errors      - mutating a batch that left Draft (ErrNotMutable)
  3. Store errors      - not found, duplicates, concurrent modification

  Out-of-range mileage on a rate band is NOT an error; it prices as zero.

USAGE:
  if errors.Is(err, payroll.ErrNotMutable) {
      // batch is frozen, nothing was changed
  }

  var verr *payroll.ValidationError
  if errors.As(err, &verr) {
      log.Printf("bad field %s: %s", verr.Field, verr.Reason)
  }
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/warp/driver-payroll/tax"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned when an entry or batch is constructed from
	// invalid input. Nothing is created.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotMutable is returned when adding entries to a batch that is not Draft.
	ErrNotMutable = errors.New("batch is not mutable")

	// ErrInvalidStatus is returned for unknown status names.
	ErrInvalidStatus = errors.New("invalid batch status")

	// ErrBatchNotFound is returned when a referenced batch doesn't exist.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrRateTableNotFound is returned when a referenced rate table doesn't exist.
	ErrRateTableNotFound = errors.New("rate table not found")

	// ErrDuplicateBatchNumber is returned when a batch number is already taken.
	ErrDuplicateBatchNumber = errors.New("duplicate batch number")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateEvent is returned when a history event already exists for
	// the batch version.
	ErrDuplicateEvent = errors.New("duplicate batch event")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// StateError reports an attempt to mutate a frozen batch.
type StateError struct {
	BatchNumber string
	Status      Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("batch %s is not mutable in status %s", e.BatchNumber, e.Status)
}

func (e *StateError) Unwrap() error {
	return ErrNotMutable
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, tax.ErrInvalidRate) ||
		errors.Is(err, tax.ErrNegativeBase) ||
		errors.Is(err, tax.ErrUnknownJurisdiction)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound) ||
		errors.Is(err, ErrRateTableNotFound)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
