/*
Package payroll provides the driver statement (batch) computation engine.

PURPOSE:
  Turns a driver's activity for a statement period (completed loads, waiting
  time, hourly work) into a statement with gross revenue, driver share,
  sales tax and net pay.

KEY CONCEPTS:
  - Load, Wait, Hourly: self-pricing work entries. Each validates its inputs
    and computes its pay exactly once, at construction. They have no setters.
  - RateBand / RateTable: mileage-keyed pricing rules for loads.
  - Batch: the aggregate root. Owns the entries, recomputes every total on
    each append, and refuses appends once it leaves Draft.

STATE MACHINE:
  ┌───────┐  SetStatus   ┌──────────┐
  │ Draft │ ───────────▶ │ Approved │  (also Paid, Void)
  └───────┘              └──────────┘
  Only Draft accepts AddLoad/AddWait/AddHourly. Any other status returns a
  *StateError wrapping ErrNotMutable and leaves the batch untouched.

CONCURRENCY:
  A Batch is not safe for concurrent mutation. Callers serialize mutations
  per batch; Store.Update does this at the persistence boundary.

SEE ALSO:
  - batch.go: Aggregate and recalculation
  - rateband.go: Band pricing
  - service.go: Store-backed orchestration
*/
package payroll

import (
	"fmt"
	"strings"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type BatchID string
type DriverID string

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusVoid     Status = "void"
)

var statuses = []Status{StatusDraft, StatusApproved, StatusPaid, StatusVoid}

// Statuses returns every known status, Draft first.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(s)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Valid() bool {
	for _, known := range statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsMutable is true only for Draft.
func (s Status) IsMutable() bool { return s == StatusDraft }

// =============================================================================
// LOAD TYPE / RATE TYPE
// =============================================================================

type LoadType string

const (
	LoadContainer LoadType = "container"
	LoadFlatbed   LoadType = "flatbed"
)

// ParseLoadType accepts "container" or "flatbed" in any case. Empty is allowed
// and returns "".
func ParseLoadType(s string) (LoadType, error) {
	switch LoadType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case LoadContainer:
		return LoadContainer, nil
	case LoadFlatbed:
		return LoadFlatbed, nil
	}
	return "", &ValidationError{Field: "load_type", Reason: fmt.Sprintf("unknown load type %q", s)}
}

type RateType string

const (
	RatePerMile RateType = "per_mile"
	RateFlat    RateType = "flat"
)

// ParseRateType accepts "per_mile"/"permile" or "flat" in any case. Empty
// defaults to per mile.
func ParseRateType(s string) (RateType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "per_mile", "permile":
		return RatePerMile, nil
	case "flat":
		return RateFlat, nil
	}
	return "", &ValidationError{Field: "rate_type", Reason: fmt.Sprintf("unknown rate type %q", s)}
}
