/*
Package money provides the fixed-point currency type used by the payroll engine.

PURPOSE:
  Every monetary figure in a driver statement (load pay, wait pay, hourly pay,
  taxes, net pay) is an Amount. Amounts wrap decimal.Decimal so that sums of
  cents never drift the way float64 does.

ROUNDING CONTRACT:
  Round2 rounds to 2 decimal places, half away from zero:
    12.345 -> 12.35
    10.005 -> 10.01
    -0.005 -> -0.01
  This is the ONLY rounding mode used for money. Banker's rounding (half to
  even) produces different statement totals and must never be mixed in.

USAGE:
  pay := money.New(0.65).Mul(decimal.NewFromInt(100)).Round2() // 65.00
  total := money.Sum(a, b, c).Round2()

SEE ALSO:
  - tax/amounts.go: Tax amounts rounded per component
  - payroll/batch.go: Aggregate rounding at each recalculation step
*/
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places a rounded Amount carries.
const Places int32 = 2

// =============================================================================
// AMOUNT - Fixed-point currency value
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{Value: decimal.Zero}

func New(value float64) Amount             { return Amount{Value: decimal.NewFromFloat(value)} }
func NewFromInt(value int64) Amount        { return Amount{Value: decimal.NewFromInt(value)} }
func FromDecimal(d decimal.Decimal) Amount { return Amount{Value: d} }

// Parse reads an amount from its decimal string form ("12.34").
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{Value: d}, nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Mul(d decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(d)} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Round2() Amount               { return Amount{Value: Round2(a.Value)} }
func (a Amount) RoundTo(places int32) Amount  { return Amount{Value: a.Value.Round(places)} }

// String renders the amount with exactly two decimals ("36.79").
func (a Amount) String() string { return a.Value.StringFixed(Places) }

// MarshalJSON encodes the amount as a two-decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either a JSON string ("12.50") or a JSON number (12.5).
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	a.Value = d
	return nil
}

// =============================================================================
// ROUNDING
// =============================================================================

// Round2 rounds d to 2 decimal places, half away from zero.
// decimal.Round already rounds half away from zero; RoundBank is the one to avoid.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds amounts without rounding. Callers round at the aggregate boundary.
func Sum(amounts ...Amount) Amount {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Value)
	}
	return Amount{Value: total}
}
