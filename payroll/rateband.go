/*
rateband.go - Mileage-range pricing rules for loads

PURPOSE:
  A RateBand prices a load from its mileage and load type. A RateTable is an
  ordered set of bands; the applicable band is the lowest-numbered one whose
  [MinMiles, MaxMiles] contains the mileage.

PRICING:
  rate  = ContainerRate or FlatbedRate, by load type
  FLAT  band: pay = rate
  other band: pay = round2(miles * rate)

NO MATCHING BAND:
  Mileage outside a band (or outside every band of a table) prices as ZERO.
  No error is raised. A missing or misconfigured band therefore shows up as a
  $0.00 load on the statement rather than a failure.
  TODO: add a strict lookup returning an error once product confirms that
  unmatched mileage should block the load.

EXAMPLE:
  band := RateBand{Band: 1, MinMiles: 0, MaxMiles: 150, BandName: "SHORT",
                   ContainerRate: 0.65, FlatbedRate: 0.70}
  band.BasePay(LoadContainer, 100)  // 65.00
  band.BasePay(LoadContainer, 200)  // 0.00
*/
package payroll

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
)

// FlatBandName marks a band whose rate is a fixed amount per load.
const FlatBandName = "FLAT"

// RateBand is an immutable pricing rule. Build it with NewRateBand so that
// it is validated.
type RateBand struct {
	Band          int
	MinMiles      decimal.Decimal
	MaxMiles      decimal.Decimal
	BandName      string
	LoadType      LoadType
	ContainerRate decimal.Decimal
	FlatbedRate   decimal.Decimal
}

// NewRateBand validates b and returns it.
func NewRateBand(b RateBand) (RateBand, error) {
	if err := b.Validate(); err != nil {
		return RateBand{}, err
	}
	return b, nil
}

// Validate checks band > 0, 0 <= min <= max and non-negative rates.
func (b RateBand) Validate() error {
	if b.Band <= 0 {
		return invalid("band", "must be positive, got %d", b.Band)
	}
	if b.MinMiles.IsNegative() {
		return invalid("min_miles", "must not be negative")
	}
	if b.MaxMiles.LessThan(b.MinMiles) {
		return invalid("max_miles", "%s is below min_miles %s", b.MaxMiles, b.MinMiles)
	}
	if b.ContainerRate.IsNegative() {
		return invalid("container_rate", "must not be negative")
	}
	if b.FlatbedRate.IsNegative() {
		return invalid("flatbed_rate", "must not be negative")
	}
	return nil
}

// IsFlat reports whether the band pays a fixed amount (case-insensitive "FLAT").
func (b RateBand) IsFlat() bool {
	return strings.EqualFold(strings.TrimSpace(b.BandName), FlatBandName)
}

// Contains returns true if miles is within [MinMiles, MaxMiles].
func (b RateBand) Contains(miles decimal.Decimal) bool {
	return !miles.LessThan(b.MinMiles) && !miles.GreaterThan(b.MaxMiles)
}

// RateFor returns the rate that applies to loadType. An empty loadType falls
// back to the band's own LoadType; an unknown one has no rate.
func (b RateBand) RateFor(loadType LoadType) (decimal.Decimal, bool) {
	if loadType == "" {
		loadType = b.LoadType
	}
	switch loadType {
	case LoadContainer:
		return b.ContainerRate, true
	case LoadFlatbed:
		return b.FlatbedRate, true
	}
	return decimal.Zero, false
}

// BasePay prices a load of loadType over miles. Returns zero when miles is
// outside the band.
func (b RateBand) BasePay(loadType LoadType, miles decimal.Decimal) money.Amount {
	if !b.Contains(miles) {
		return money.Zero
	}
	rate, ok := b.RateFor(loadType)
	if !ok {
		return money.Zero
	}
	if b.IsFlat() {
		return money.FromDecimal(rate)
	}
	return money.FromDecimal(miles.Mul(rate)).Round2()
}

// Label is the band label carried on loads priced by this band.
func (b RateBand) Label() string {
	if b.BandName != "" {
		return b.BandName
	}
	return fmt.Sprintf("BAND-%d", b.Band)
}

// =============================================================================
// RATE TABLE
// =============================================================================

// RateTable is a named set of bands ordered by band number.
type RateTable struct {
	ID    string
	Name  string
	Bands []RateBand
}

// NewRateTable validates every band, rejects duplicate band numbers and sorts
// the bands ascending.
func NewRateTable(id, name string, bands []RateBand) (RateTable, error) {
	if strings.TrimSpace(id) == "" {
		return RateTable{}, invalid("id", "is required")
	}

	seen := make(map[int]bool, len(bands))
	sorted := make([]RateBand, 0, len(bands))
	for _, b := range bands {
		if err := b.Validate(); err != nil {
			return RateTable{}, fmt.Errorf("band %d: %w", b.Band, err)
		}
		if seen[b.Band] {
			return RateTable{}, invalid("band", "duplicate band number %d", b.Band)
		}
		seen[b.Band] = true
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Band < sorted[j].Band })

	return RateTable{ID: id, Name: name, Bands: sorted}, nil
}

// Select returns the lowest-numbered band containing miles.
func (t RateTable) Select(miles decimal.Decimal) (RateBand, bool) {
	for _, b := range t.Bands {
		if b.Contains(miles) {
			return b, true
		}
	}
	return RateBand{}, false
}

// BasePay prices through the selected band, or returns zero if none applies.
func (t RateTable) BasePay(loadType LoadType, miles decimal.Decimal) money.Amount {
	b, ok := t.Select(miles)
	if !ok {
		return money.Zero
	}
	return b.BasePay(loadType, miles)
}

// Terms returns the rate type, rate and band label that a load priced from
// this table carries. With no applicable band the load is per-mile at 0.
func (t RateTable) Terms(loadType LoadType, miles decimal.Decimal) (RateType, decimal.Decimal, string) {
	b, ok := t.Select(miles)
	if !ok {
		return RatePerMile, decimal.Zero, ""
	}
	rate, ok := b.RateFor(loadType)
	if !ok {
		return RatePerMile, decimal.Zero, b.Label()
	}
	if b.IsFlat() {
		return RateFlat, rate, b.Label()
	}
	return RatePerMile, rate, b.Label()
}
