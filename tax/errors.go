package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRate is returned when a rate falls outside [0, 1].
	ErrInvalidRate = errors.New("invalid tax rate")

	// ErrNegativeBase is returned when a taxable base is below zero.
	ErrNegativeBase = errors.New("taxable base must not be negative")

	// ErrProfileRequired is returned when Calculate is called without a profile.
	ErrProfileRequired = errors.New("tax profile is required")

	// ErrUnknownJurisdiction is returned by Lookup for unregistered codes.
	ErrUnknownJurisdiction = errors.New("unknown tax jurisdiction")
)

// RateError names the rate that failed validation.
type RateError struct {
	Name  string // "gst", "qst", "pst" or "hst"
	Value decimal.Decimal
}

func (e *RateError) Error() string {
	return fmt.Sprintf("invalid tax rate: %s=%s must be within [0, 1]", e.Name, e.Value)
}

func (e *RateError) Unwrap() error {
	return ErrInvalidRate
}
