package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/driver-payroll/payroll"
)

func shortBand() payroll.RateBand {
	return payroll.RateBand{
		Band:          1,
		MinMiles:      dec("0"),
		MaxMiles:      dec("150"),
		BandName:      "SHORT",
		LoadType:      payroll.LoadContainer,
		ContainerRate: dec("0.65"),
		FlatbedRate:   dec("0.70"),
	}
}

func testTable(t *testing.T) payroll.RateTable {
	t.Helper()
	table, err := payroll.NewRateTable("qc-2025", "Quebec 2025", []payroll.RateBand{
		{Band: 3, MinMiles: dec("400.01"), MaxMiles: dec("2000"), BandName: "FLAT", ContainerRate: dec("450"), FlatbedRate: dec("500")},
		shortBand(),
		{Band: 2, MinMiles: dec("150.01"), MaxMiles: dec("400"), BandName: "LONG", ContainerRate: dec("0.55"), FlatbedRate: dec("0.60")},
	})
	require.NoError(t, err)
	return table
}

func TestRateBand_BasePay(t *testing.T) {
	band := shortBand()

	tests := []struct {
		name     string
		loadType payroll.LoadType
		miles    string
		want     string
	}{
		{"container in range", payroll.LoadContainer, "100", "65.00"},
		{"flatbed in range", payroll.LoadFlatbed, "100", "70.00"},
		{"rounded", payroll.LoadContainer, "33.3", "21.65"},
		{"lower bound inclusive", payroll.LoadContainer, "0", "0.00"},
		{"upper bound inclusive", payroll.LoadContainer, "150", "97.50"},
		{"empty type uses band type", "", "100", "65.00"},
		{"above range prices zero", payroll.LoadContainer, "200", "0.00"},
		{"unknown type prices zero", payroll.LoadType("tanker"), "100", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, band.BasePay(tt.loadType, dec(tt.miles)).String())
		})
	}
}

func TestRateBand_RateFor(t *testing.T) {
	typed := shortBand()
	untyped := shortBand()
	untyped.LoadType = ""

	rate, ok := typed.RateFor("")
	assert.True(t, ok)
	assert.True(t, rate.Equal(dec("0.65")))

	rate, ok = untyped.RateFor(payroll.LoadFlatbed)
	assert.True(t, ok)
	assert.True(t, rate.Equal(dec("0.70")))

	// No load type and no band default: no rate, and BasePay falls to zero.
	_, ok = untyped.RateFor("")
	assert.False(t, ok)
	assert.True(t, untyped.BasePay("", dec("100")).IsZero())
}

func TestRateBand_FlatPaysRateVerbatim(t *testing.T) {
	band := payroll.RateBand{
		Band:          9,
		MinMiles:      dec("0"),
		MaxMiles:      dec("1000"),
		BandName:      "flat",
		ContainerRate: dec("425.50"),
		FlatbedRate:   dec("480"),
	}
	require.True(t, band.IsFlat())

	assert.Equal(t, "425.50", band.BasePay(payroll.LoadContainer, dec("12")).String())
	assert.Equal(t, "480.00", band.BasePay(payroll.LoadFlatbed, dec("999")).String())
}

func TestRateBand_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*payroll.RateBand)
		field string
	}{
		{"zero band", func(b *payroll.RateBand) { b.Band = 0 }, "band"},
		{"negative min", func(b *payroll.RateBand) { b.MinMiles = dec("-1") }, "min_miles"},
		{"max below min", func(b *payroll.RateBand) { b.MinMiles = dec("200") }, "max_miles"},
		{"negative container rate", func(b *payroll.RateBand) { b.ContainerRate = dec("-0.1") }, "container_rate"},
		{"negative flatbed rate", func(b *payroll.RateBand) { b.FlatbedRate = dec("-0.1") }, "flatbed_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band := shortBand()
			tt.edit(&band)
			_, err := payroll.NewRateBand(band)
			assertValidationError(t, err, tt.field)
		})
	}
}

func TestRateBand_Label(t *testing.T) {
	assert.Equal(t, "SHORT", shortBand().Label())
	assert.Equal(t, "BAND-7", payroll.RateBand{Band: 7}.Label())
}

// =============================================================================
// RATE TABLE
// =============================================================================

func TestNewRateTable_SortsBands(t *testing.T) {
	table := testTable(t)

	require.Len(t, table.Bands, 3)
	assert.Equal(t, 1, table.Bands[0].Band)
	assert.Equal(t, 2, table.Bands[1].Band)
	assert.Equal(t, 3, table.Bands[2].Band)
}

func TestNewRateTable_Rejects(t *testing.T) {
	_, err := payroll.NewRateTable("", "no id", nil)
	assertValidationError(t, err, "id")

	_, err = payroll.NewRateTable("dup", "dup", []payroll.RateBand{shortBand(), shortBand()})
	assertValidationError(t, err, "band")

	bad := shortBand()
	bad.MaxMiles = dec("-5")
	_, err = payroll.NewRateTable("bad", "bad", []payroll.RateBand{bad})
	require.ErrorIs(t, err, payroll.ErrInvalidArgument)
}

func TestRateTable_Select(t *testing.T) {
	table := testTable(t)

	b, ok := table.Select(dec("150"))
	require.True(t, ok)
	assert.Equal(t, "SHORT", b.BandName)

	b, ok = table.Select(dec("150.01"))
	require.True(t, ok)
	assert.Equal(t, "LONG", b.BandName)

	_, ok = table.Select(dec("2500"))
	assert.False(t, ok)
}

func TestRateTable_BasePay(t *testing.T) {
	table := testTable(t)

	assert.Equal(t, "65.00", table.BasePay(payroll.LoadContainer, dec("100")).String())
	assert.Equal(t, "180.00", table.BasePay(payroll.LoadFlatbed, dec("300")).String())
	assert.Equal(t, "450.00", table.BasePay(payroll.LoadContainer, dec("800")).String())
}

func TestRateTable_UnmatchedMileagePricesZero(t *testing.T) {
	// GIVEN: mileage beyond every band
	table := testTable(t)

	// WHEN: pricing
	pay := table.BasePay(payroll.LoadContainer, dec("2500"))
	rateType, rate, label := table.Terms(payroll.LoadContainer, dec("2500"))

	// THEN: zero, no error
	assert.True(t, pay.IsZero())
	assert.Equal(t, payroll.RatePerMile, rateType)
	assert.True(t, rate.IsZero())
	assert.Empty(t, label)
}

func TestRateTable_Terms(t *testing.T) {
	table := testTable(t)

	rateType, rate, label := table.Terms(payroll.LoadFlatbed, dec("200"))
	assert.Equal(t, payroll.RatePerMile, rateType)
	assert.True(t, rate.Equal(dec("0.60")))
	assert.Equal(t, "LONG", label)

	rateType, rate, label = table.Terms(payroll.LoadContainer, dec("1200"))
	assert.Equal(t, payroll.RateFlat, rateType)
	assert.True(t, rate.Equal(dec("450")))
	assert.Equal(t, "FLAT", label)

	// Terms fed into a load reproduce the table price.
	l, err := payroll.NewLoad(payroll.LoadInput{LoadNumber: "L", LegMiles: dec("1200"), RateType: rateType, Rate: rate, BandLabel: label})
	require.NoError(t, err)
	assert.True(t, l.BasePay().Equal(table.BasePay(payroll.LoadContainer, dec("1200"))))
}

// =============================================================================
// PARSERS
// =============================================================================

func TestParseStatus(t *testing.T) {
	s, err := payroll.ParseStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, s)

	_, err = payroll.ParseStatus("archived")
	assert.ErrorIs(t, err, payroll.ErrInvalidStatus)
	assert.True(t, payroll.IsClientError(err))
}

func TestStatus_IsMutable(t *testing.T) {
	for _, s := range payroll.Statuses() {
		assert.Equal(t, s == payroll.StatusDraft, s.IsMutable(), string(s))
	}
}

func TestParseLoadAndRateType(t *testing.T) {
	lt, err := payroll.ParseLoadType("FLATBED")
	require.NoError(t, err)
	assert.Equal(t, payroll.LoadFlatbed, lt)

	lt, err = payroll.ParseLoadType("")
	require.NoError(t, err)
	assert.Empty(t, lt)

	_, err = payroll.ParseLoadType("reefer")
	assertValidationError(t, err, "load_type")

	rt, err := payroll.ParseRateType("")
	require.NoError(t, err)
	assert.Equal(t, payroll.RatePerMile, rt)

	rt, err = payroll.ParseRateType("PerMile")
	require.NoError(t, err)
	assert.Equal(t, payroll.RatePerMile, rt)

	_, err = payroll.ParseRateType("per_km")
	assertValidationError(t, err, "rate_type")
}
