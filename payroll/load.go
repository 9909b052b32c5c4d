package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
)

// =============================================================================
// LOAD - Completed trip priced by mileage or a flat amount
// =============================================================================

// LoadInput holds the raw fields of a completed load.
type LoadInput struct {
	LoadNumber      string // required
	ReferenceNumber string
	OriginCode      string
	DestinationCode string
	Date            time.Time

	LegMiles  decimal.Decimal
	LoadType  LoadType
	RateType  RateType
	Rate      decimal.Decimal
	BandLabel string

	FSCPay                    money.Amount // fuel surcharge
	TemporaryEmergencyFuelPay money.Amount
}

// Load is an immutable, priced load entry. Construct with NewLoad.
type Load struct {
	in      LoadInput
	basePay money.Amount
	netPay  money.Amount
}

// NewLoad validates in and prices it:
//
//	basePay = round2(legMiles * rate)  (PerMile)
//	basePay = round2(rate)             (Flat)
//	netPay  = round2(basePay + fsc + temporaryEmergencyFuel)
//
// FSC and temporary emergency fuel pay are rounded to 2 places first.
func NewLoad(in LoadInput) (Load, error) {
	in.LoadNumber = strings.TrimSpace(in.LoadNumber)
	if in.LoadNumber == "" {
		return Load{}, invalid("load_number", "is required")
	}
	if in.LegMiles.IsNegative() {
		return Load{}, invalid("leg_miles", "must not be negative, got %s", in.LegMiles)
	}
	if in.Rate.IsNegative() {
		return Load{}, invalid("rate", "must not be negative, got %s", in.Rate)
	}
	if in.RateType == "" {
		in.RateType = RatePerMile
	}
	if in.RateType != RatePerMile && in.RateType != RateFlat {
		return Load{}, invalid("rate_type", "unknown rate type %q", in.RateType)
	}
	if in.LoadType != "" && in.LoadType != LoadContainer && in.LoadType != LoadFlatbed {
		return Load{}, invalid("load_type", "unknown load type %q", in.LoadType)
	}

	in.Date = DateOf(in.Date)
	in.FSCPay = in.FSCPay.Round2()
	in.TemporaryEmergencyFuelPay = in.TemporaryEmergencyFuelPay.Round2()

	var base money.Amount
	switch in.RateType {
	case RateFlat:
		base = money.FromDecimal(in.Rate).Round2()
	default:
		base = money.FromDecimal(in.LegMiles.Mul(in.Rate)).Round2()
	}

	return Load{
		in:      in,
		basePay: base,
		netPay:  money.Sum(base, in.FSCPay, in.TemporaryEmergencyFuelPay).Round2(),
	}, nil
}

// Input returns the normalized inputs the load was priced from.
func (l Load) Input() LoadInput { return l.in }

func (l Load) LoadNumber() string                      { return l.in.LoadNumber }
func (l Load) ReferenceNumber() string                 { return l.in.ReferenceNumber }
func (l Load) OriginCode() string                      { return l.in.OriginCode }
func (l Load) DestinationCode() string                 { return l.in.DestinationCode }
func (l Load) Date() time.Time                         { return l.in.Date }
func (l Load) LegMiles() decimal.Decimal               { return l.in.LegMiles }
func (l Load) LoadType() LoadType                      { return l.in.LoadType }
func (l Load) RateType() RateType                      { return l.in.RateType }
func (l Load) Rate() decimal.Decimal                   { return l.in.Rate }
func (l Load) BandLabel() string                       { return l.in.BandLabel }
func (l Load) FSCPay() money.Amount                    { return l.in.FSCPay }
func (l Load) TemporaryEmergencyFuelPay() money.Amount { return l.in.TemporaryEmergencyFuelPay }
func (l Load) BasePay() money.Amount                   { return l.basePay }
func (l Load) NetPay() money.Amount                    { return l.netPay }
