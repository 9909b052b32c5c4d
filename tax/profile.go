/*
Package tax computes Canadian sales tax (GST/QST/PST/HST) on driver pay.

PURPOSE:
  A Profile describes the rates of one jurisdiction. Calculate turns a taxable
  base and a Profile into per-component Amounts.

QST COMPOUNDING:
  Quebec historically charged QST on the base plus GST. When a Profile has
  CompoundQSTOverGST set, QST is computed on (base + rounded GST):

    base 100.00, GST 5%, QST 9.975% compounded
    gst = round2(100.00 * 0.05)          = 5.00
    qst = round2((100.00 + 5.00) * 0.09975) = 10.47
    total                                  = 15.47

  This is NOT the same as summing two flat taxes (which gives 14.98).

PRESETS:
  Quebec():  GST 5%, QST 9.975% compounded over GST
  Ontario(): HST 13%

  Any other jurisdiction is built with NewProfile and may be registered with
  Register so that configuration and the API can refer to it by code.

SEE ALSO:
  - amounts.go: Calculate, CalculateTwoTax
  - registry.go: Jurisdiction lookup by code
*/
package tax

import (
	"github.com/shopspring/decimal"
)

// Profile is an immutable set of sales-tax rates. Construct with NewProfile.
type Profile struct {
	name     string
	gst      decimal.Decimal
	qst      decimal.Decimal
	pst      decimal.Decimal
	hst      decimal.Decimal
	compound bool
}

// Rates is the raw input to NewProfile.
type Rates struct {
	GST decimal.Decimal
	QST decimal.Decimal
	PST decimal.Decimal
	HST decimal.Decimal

	CompoundQSTOverGST bool
}

// NewProfile validates every rate against [0, 1] and returns the profile.
// The first offending rate is reported as a *RateError.
func NewProfile(name string, r Rates) (*Profile, error) {
	checks := []struct {
		name  string
		value decimal.Decimal
	}{
		{"gst", r.GST},
		{"qst", r.QST},
		{"pst", r.PST},
		{"hst", r.HST},
	}
	one := decimal.NewFromInt(1)
	for _, c := range checks {
		if c.value.IsNegative() || c.value.GreaterThan(one) {
			return nil, &RateError{Name: c.name, Value: c.value}
		}
	}

	return &Profile{
		name:     name,
		gst:      r.GST,
		qst:      r.QST,
		pst:      r.PST,
		hst:      r.HST,
		compound: r.CompoundQSTOverGST,
	}, nil
}

func (p *Profile) Name() string             { return p.name }
func (p *Profile) GSTRate() decimal.Decimal { return p.gst }
func (p *Profile) QSTRate() decimal.Decimal { return p.qst }
func (p *Profile) PSTRate() decimal.Decimal { return p.pst }
func (p *Profile) HSTRate() decimal.Decimal { return p.hst }
func (p *Profile) CompoundQSTOverGST() bool { return p.compound }

// Rates returns a copy of the profile's inputs.
func (p *Profile) Rates() Rates {
	return Rates{GST: p.gst, QST: p.qst, PST: p.pst, HST: p.hst, CompoundQSTOverGST: p.compound}
}

// TotalRate is the plain sum of the four rates. Informational only: it
// understates the effective rate when QST compounds over GST.
func (p *Profile) TotalRate() decimal.Decimal {
	return p.gst.Add(p.qst).Add(p.pst).Add(p.hst)
}

// =============================================================================
// PRESETS
// =============================================================================

const (
	JurisdictionQuebec  = "QC"
	JurisdictionOntario = "ON"
)

var (
	// DefaultGSTRate and DefaultQSTRate are the fixed rates the batch
	// aggregate applies to the driver share.
	DefaultGSTRate = decimal.RequireFromString("0.05")
	DefaultQSTRate = decimal.RequireFromString("0.09975")
)

// Quebec returns GST 5% with QST 9.975% compounded over GST.
func Quebec() *Profile {
	return mustProfile(JurisdictionQuebec, Rates{
		GST:                DefaultGSTRate,
		QST:                DefaultQSTRate,
		CompoundQSTOverGST: true,
	})
}

// Ontario returns a single 13% harmonized rate.
func Ontario() *Profile {
	return mustProfile(JurisdictionOntario, Rates{
		HST: decimal.RequireFromString("0.13"),
	})
}

func mustProfile(name string, r Rates) *Profile {
	p, err := NewProfile(name, r)
	if err != nil {
		panic(err)
	}
	return p
}
