/*
Package factory provides JSON to Go conversion for payroll configuration.

PURPOSE:
  Converts JSON rate table and tax profile definitions into validated
  payroll.RateTable and tax.Profile values. Dispatch can change mileage
  bands or tax rates without a code change.

RATE TABLE JSON:
  {
    "id": "qc-2025",
    "name": "Quebec drayage 2025",
    "bands": [
      {"band": 1, "min_miles": 0, "max_miles": 150, "band_name": "SHORT",
       "load_type": "container", "container_rate": "0.65", "flatbed_rate": "0.70"},
      {"band": 3, "min_miles": 400.01, "max_miles": 3000, "band_name": "FLAT",
       "container_rate": 450, "flatbed_rate": 500}
    ]
  }

TAX PROFILE JSON:
  {"name": "QC", "gst": "0.05", "qst": "0.09975", "compound_qst_over_gst": true}

  Rates and miles accept JSON numbers or decimal strings. Strings are
  preferred: they never pass through float64.

USAGE:
  f := NewConfigFactory()
  table, err := f.ParseRateTable(DefaultRateTableJSON())
  profile, err := f.ParseTaxProfile(`{"name":"ON","hst":"0.13"}`)

SEE ALSO:
  - payroll/rateband.go: RateBand and RateTable
  - tax/profile.go: Profile validation
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/tax"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateTableJSON is the JSON representation of a rate table.
type RateTableJSON struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Bands []RateBandJSON `json:"bands"`
}

// RateBandJSON represents one mileage band.
type RateBandJSON struct {
	Band          int             `json:"band"`
	MinMiles      decimal.Decimal `json:"min_miles"`
	MaxMiles      decimal.Decimal `json:"max_miles"`
	BandName      string          `json:"band_name,omitempty"` // "FLAT" for fixed pay
	LoadType      string          `json:"load_type,omitempty"` // container, flatbed
	ContainerRate decimal.Decimal `json:"container_rate"`
	FlatbedRate   decimal.Decimal `json:"flatbed_rate"`
}

// TaxProfileJSON is the JSON representation of a tax profile. Omitted rates
// are zero.
type TaxProfileJSON struct {
	Name               string          `json:"name"`
	GST                decimal.Decimal `json:"gst"`
	QST                decimal.Decimal `json:"qst"`
	PST                decimal.Decimal `json:"pst"`
	HST                decimal.Decimal `json:"hst"`
	CompoundQSTOverGST bool            `json:"compound_qst_over_gst,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ConfigFactory converts JSON configuration to payroll and tax values.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseRateTable parses a JSON string into a validated RateTable.
func (f *ConfigFactory) ParseRateTable(jsonStr string) (payroll.RateTable, error) {
	var rj RateTableJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return payroll.RateTable{}, fmt.Errorf("failed to parse rate table JSON: %w", err)
	}

	return f.RateTableFromJSON(rj)
}

// RateTableFromJSON converts RateTableJSON to payroll.RateTable.
func (f *ConfigFactory) RateTableFromJSON(rj RateTableJSON) (payroll.RateTable, error) {
	bands := make([]payroll.RateBand, 0, len(rj.Bands))
	for _, bj := range rj.Bands {
		loadType, err := payroll.ParseLoadType(bj.LoadType)
		if err != nil {
			return payroll.RateTable{}, fmt.Errorf("band %d: %w", bj.Band, err)
		}
		bands = append(bands, payroll.RateBand{
			Band:          bj.Band,
			MinMiles:      bj.MinMiles,
			MaxMiles:      bj.MaxMiles,
			BandName:      bj.BandName,
			LoadType:      loadType,
			ContainerRate: bj.ContainerRate,
			FlatbedRate:   bj.FlatbedRate,
		})
	}

	return payroll.NewRateTable(rj.ID, rj.Name, bands)
}

// RateTableToJSON converts a RateTable back to its JSON form.
func (f *ConfigFactory) RateTableToJSON(t payroll.RateTable) RateTableJSON {
	rj := RateTableJSON{ID: t.ID, Name: t.Name, Bands: make([]RateBandJSON, 0, len(t.Bands))}
	for _, b := range t.Bands {
		rj.Bands = append(rj.Bands, RateBandJSON{
			Band:          b.Band,
			MinMiles:      b.MinMiles,
			MaxMiles:      b.MaxMiles,
			BandName:      b.BandName,
			LoadType:      string(b.LoadType),
			ContainerRate: b.ContainerRate,
			FlatbedRate:   b.FlatbedRate,
		})
	}
	return rj
}

// ParseTaxProfile parses a JSON string into a validated tax.Profile.
func (f *ConfigFactory) ParseTaxProfile(jsonStr string) (*tax.Profile, error) {
	var tj TaxProfileJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return nil, fmt.Errorf("failed to parse tax profile JSON: %w", err)
	}

	return f.TaxProfileFromJSON(tj)
}

// TaxProfileFromJSON converts TaxProfileJSON to tax.Profile.
func (f *ConfigFactory) TaxProfileFromJSON(tj TaxProfileJSON) (*tax.Profile, error) {
	if tj.Name == "" {
		return nil, fmt.Errorf("tax profile: name is required: %w", payroll.ErrInvalidArgument)
	}
	return tax.NewProfile(tj.Name, tax.Rates{
		GST:                tj.GST,
		QST:                tj.QST,
		PST:                tj.PST,
		HST:                tj.HST,
		CompoundQSTOverGST: tj.CompoundQSTOverGST,
	})
}

// TaxProfileToJSON converts a Profile back to its JSON form.
func (f *ConfigFactory) TaxProfileToJSON(p *tax.Profile) TaxProfileJSON {
	r := p.Rates()
	return TaxProfileJSON{
		Name:               p.Name(),
		GST:                r.GST,
		QST:                r.QST,
		PST:                r.PST,
		HST:                r.HST,
		CompoundQSTOverGST: r.CompoundQSTOverGST,
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// DefaultRateTableID identifies the table returned by DefaultRateTableJSON.
const DefaultRateTableID = "standard"

// DefaultRateTableJSON returns the standard three-band drayage table: short
// and long per-mile bands and a flat band for anything longer.
func DefaultRateTableJSON() string {
	return `{
  "id": "standard",
  "name": "Standard drayage",
  "bands": [
    {"band": 1, "min_miles": "0", "max_miles": "150", "band_name": "SHORT",
     "container_rate": "0.65", "flatbed_rate": "0.70"},
    {"band": 2, "min_miles": "150.01", "max_miles": "400", "band_name": "LONG",
     "container_rate": "0.55", "flatbed_rate": "0.60"},
    {"band": 3, "min_miles": "400.01", "max_miles": "3000", "band_name": "FLAT",
     "container_rate": "450.00", "flatbed_rate": "500.00"}
  ]
}`
}
