package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
)

// DefaultWaitMultiplier applies when WaitInput.Multiplier is nil.
var DefaultWaitMultiplier = decimal.NewFromInt(1)

// WaitInput holds the raw fields of a waiting period.
type WaitInput struct {
	Reference string // load number or other reference, optional
	Date      time.Time

	WaitMinutes   int
	RatePerMinute decimal.Decimal
	Multiplier    *decimal.Decimal // nil means 1.0

	// InvoicePay, when set, is the amount billed for this wait and becomes
	// FinalPay. It does not affect RawPay.
	InvoicePay *money.Amount
}

// Wait is an immutable waiting-time entry.
type Wait struct {
	in       WaitInput
	rawPay   money.Amount
	finalPay money.Amount
}

// NewWait validates in and prices it. RawPay = minutes * rate * multiplier
// and is kept unrounded; the batch rounds after summing. FinalPay is the
// invoice value if supplied, else RawPay, rounded to 2 places either way.
func NewWait(in WaitInput) (Wait, error) {
	if in.WaitMinutes < 0 {
		return Wait{}, invalid("wait_minutes", "must not be negative, got %d", in.WaitMinutes)
	}
	if in.RatePerMinute.IsNegative() {
		return Wait{}, invalid("rate_per_minute", "must not be negative, got %s", in.RatePerMinute)
	}
	multiplier := DefaultWaitMultiplier
	if in.Multiplier != nil {
		multiplier = *in.Multiplier
	}
	if multiplier.IsNegative() {
		return Wait{}, invalid("multiplier", "must not be negative, got %s", multiplier)
	}
	in.Multiplier = &multiplier
	in.Reference = strings.TrimSpace(in.Reference)
	in.Date = DateOf(in.Date)

	raw := money.FromDecimal(decimal.NewFromInt(int64(in.WaitMinutes)).Mul(in.RatePerMinute).Mul(multiplier))

	final := raw.Round2()
	if in.InvoicePay != nil {
		invoice := in.InvoicePay.Round2()
		in.InvoicePay = &invoice
		final = invoice
	}

	return Wait{in: in, rawPay: raw, finalPay: final}, nil
}

// Input returns the normalized inputs. Pointer fields are copies.
func (w Wait) Input() WaitInput {
	in := w.in
	multiplier := *w.in.Multiplier
	in.Multiplier = &multiplier
	if w.in.InvoicePay != nil {
		invoice := *w.in.InvoicePay
		in.InvoicePay = &invoice
	}
	return in
}

func (w Wait) Reference() string              { return w.in.Reference }
func (w Wait) Date() time.Time                { return w.in.Date }
func (w Wait) WaitMinutes() int               { return w.in.WaitMinutes }
func (w Wait) RatePerMinute() decimal.Decimal { return w.in.RatePerMinute }
func (w Wait) Multiplier() decimal.Decimal    { return *w.in.Multiplier }
func (w Wait) RawPay() money.Amount           { return w.rawPay }
func (w Wait) FinalPay() money.Amount         { return w.finalPay }

// HasInvoicePay reports whether FinalPay came from an invoice value.
func (w Wait) HasInvoicePay() bool { return w.in.InvoicePay != nil }
