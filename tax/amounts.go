package tax

import (
	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
)

// Amounts is the per-component tax breakdown on a taxable base.
// Values are produced by Calculate or CalculateTwoTax.
type Amounts struct {
	GST money.Amount
	QST money.Amount
	PST money.Amount
	HST money.Amount
}

// Total is the exact sum of the already-rounded components. It is not
// rounded again.
func (a Amounts) Total() money.Amount {
	return money.Sum(a.GST, a.QST, a.PST, a.HST)
}

// Calculate applies profile to base, rounding each component to decimals
// places (half away from zero). When the profile compounds QST over GST,
// QST is charged on base + rounded GST.
func Calculate(base money.Amount, profile *Profile, decimals int32) (Amounts, error) {
	if profile == nil {
		return Amounts{}, ErrProfileRequired
	}
	if base.IsNegative() {
		return Amounts{}, ErrNegativeBase
	}

	gst := base.Mul(profile.gst).RoundTo(decimals)

	qstBase := base
	if profile.compound {
		qstBase = base.Add(gst)
	}
	qst := qstBase.Mul(profile.qst).RoundTo(decimals)

	return Amounts{
		GST: gst,
		QST: qst,
		PST: base.Mul(profile.pst).RoundTo(decimals),
		HST: base.Mul(profile.hst).RoundTo(decimals),
	}, nil
}

// CalculateTwoTax computes GST and QST independently from fixed rates, each
// on the base and rounded to 2 places. No compounding, no PST/HST.
//
// The batch aggregate uses this with DefaultGSTRate/DefaultQSTRate for its
// net pay. Do not route it through a Profile: that changes the totals of
// statements already issued.
func CalculateTwoTax(base money.Amount, gstRate, qstRate decimal.Decimal) Amounts {
	return Amounts{
		GST: base.Mul(gstRate).Round2(),
		QST: base.Mul(qstRate).Round2(),
		PST: money.Zero,
		HST: money.Zero,
	}
}
