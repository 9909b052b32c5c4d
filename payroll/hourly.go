package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
)

var minutesPerHour = decimal.NewFromInt(60)

// HourlyInput holds the raw fields of time-based work.
type HourlyInput struct {
	Date        time.Time
	Hours       int
	Minutes     int // 0-59
	RatePerHour decimal.Decimal

	// InvoicePay overrides the computed pay when set.
	InvoicePay *money.Amount
}

// Hourly is an immutable hourly-work entry.
type Hourly struct {
	in       HourlyInput
	totalPay money.Amount
}

// NewHourly validates in and prices it:
//
//	totalPay = round2(invoicePay)                          if supplied
//	totalPay = round2((hours + minutes/60) * ratePerHour)  otherwise
func NewHourly(in HourlyInput) (Hourly, error) {
	if in.Hours < 0 {
		return Hourly{}, invalid("hours", "must not be negative, got %d", in.Hours)
	}
	if in.Minutes < 0 || in.Minutes > 59 {
		return Hourly{}, invalid("minutes", "must be within [0, 59], got %d", in.Minutes)
	}
	if in.RatePerHour.IsNegative() {
		return Hourly{}, invalid("rate_per_hour", "must not be negative, got %s", in.RatePerHour)
	}
	in.Date = DateOf(in.Date)

	if in.InvoicePay != nil {
		invoice := in.InvoicePay.Round2()
		in.InvoicePay = &invoice
		return Hourly{in: in, totalPay: invoice}, nil
	}

	return Hourly{in: in, totalPay: money.FromDecimal(in.minutePay()).Round2()}, nil
}

// minutePay is (hours*60 + minutes) * rate / 60, divided last so that exact
// half cents stay exact.
func (in HourlyInput) minutePay() decimal.Decimal {
	minutes := decimal.NewFromInt(int64(in.Hours)*60 + int64(in.Minutes))
	return minutes.Mul(in.RatePerHour).Div(minutesPerHour)
}

// Duration is hours + minutes/60 as a decimal number of hours, for display.
func (in HourlyInput) Duration() decimal.Decimal {
	return decimal.NewFromInt(int64(in.Hours)).Add(decimal.NewFromInt(int64(in.Minutes)).Div(minutesPerHour))
}

// Input returns the normalized inputs. InvoicePay, if set, is a copy.
func (h Hourly) Input() HourlyInput {
	in := h.in
	if h.in.InvoicePay != nil {
		invoice := *h.in.InvoicePay
		in.InvoicePay = &invoice
	}
	return in
}

func (h Hourly) Date() time.Time              { return h.in.Date }
func (h Hourly) Hours() int                   { return h.in.Hours }
func (h Hourly) Minutes() int                 { return h.in.Minutes }
func (h Hourly) RatePerHour() decimal.Decimal { return h.in.RatePerHour }
func (h Hourly) TotalPay() money.Amount       { return h.totalPay }
func (h Hourly) HasInvoicePay() bool          { return h.in.InvoicePay != nil }
