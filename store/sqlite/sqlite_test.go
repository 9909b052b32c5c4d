package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/store/sqlite"
	"github.com/warp/driver-payroll/tax"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newBatch(t *testing.T, number string, driver payroll.DriverID, day int) *payroll.Batch {
	t.Helper()
	b, err := payroll.NewBatch(payroll.BatchInput{
		BatchNumber:             number,
		DriverID:                driver,
		StatementStartDate:      payroll.Date(2025, 3, day),
		StatementEndDate:        payroll.Date(2025, 3, day+6),
		WaitingPayoutPercentage: decimal.RequireFromString("0.5"),
		DriverSharePercentage:   decimal.RequireFromString("0.40"),
	})
	require.NoError(t, err)
	return b
}

func TestStore_RoundTripRecomputesTotals(t *testing.T) {
	// GIVEN: a batch with every kind of entry, including optional fields
	ctx := context.Background()
	store := newStore(t)
	b := newBatch(t, "B-1", "drv-1", 1)

	invoice := money.MustParse("12.345")
	multiplier := decimal.RequireFromString("1.5")
	_, err := b.AddLoad(payroll.LoadInput{
		LoadNumber:      "L-1",
		ReferenceNumber: "REF-1",
		OriginCode:      "MTL",
		DestinationCode: "QUE",
		Date:            payroll.Date(2025, 3, 2),
		LegMiles:        decimal.NewFromInt(100),
		LoadType:        payroll.LoadContainer,
		RateType:        payroll.RatePerMile,
		Rate:            decimal.RequireFromString("0.65"),
		BandLabel:       "SHORT",
		FSCPay:          money.MustParse("4.10"),
	})
	require.NoError(t, err)
	_, err = b.AddWait(payroll.WaitInput{Reference: "W-1", WaitMinutes: 30, RatePerMinute: decimal.NewFromInt(1), Multiplier: &multiplier})
	require.NoError(t, err)
	_, err = b.AddWait(payroll.WaitInput{WaitMinutes: 10, RatePerMinute: decimal.NewFromInt(1), InvoicePay: &invoice})
	require.NoError(t, err)
	_, err = b.AddHourly(payroll.HourlyInput{Date: payroll.Date(2025, 3, 3), Hours: 2, Minutes: 30, RatePerHour: decimal.NewFromInt(20)})
	require.NoError(t, err)

	// WHEN: stored and loaded back
	require.NoError(t, store.Create(ctx, b))
	got, err := store.Get(ctx, b.ID())
	require.NoError(t, err)

	// THEN: the rebuilt batch has the same entries and totals
	assert.Equal(t, 1, got.Version())
	assert.Equal(t, b.BatchNumber(), got.BatchNumber())
	assert.Equal(t, b.DriverID(), got.DriverID())
	assert.Equal(t, b.Period(), got.Period())
	assert.True(t, b.CreatedAt().Equal(got.CreatedAt()))

	require.Len(t, got.Loads(), 1)
	l := got.Loads()[0]
	assert.Equal(t, "REF-1", l.ReferenceNumber())
	assert.Equal(t, payroll.Date(2025, 3, 2), l.Date())
	assert.Equal(t, "SHORT", l.BandLabel())
	assert.Equal(t, "69.10", l.NetPay().String())

	require.Len(t, got.Waits(), 2)
	assert.True(t, got.Waits()[0].Multiplier().Equal(multiplier))
	assert.True(t, got.Waits()[1].HasInvoicePay())
	assert.Equal(t, "12.35", got.Waits()[1].FinalPay().String())
	assert.True(t, got.Waits()[1].Date().IsZero())

	require.Len(t, got.Hourlies(), 1)
	assert.Equal(t, "50.00", got.Hourlies()[0].TotalPay().String())

	for _, pair := range [][2]money.Amount{
		{b.Totals().TripTotal, got.Totals().TripTotal},
		{b.Totals().WaitingRawTotal, got.Totals().WaitingRawTotal},
		{b.Totals().WaitingTotal, got.Totals().WaitingTotal},
		{b.Totals().HourlyTotal, got.Totals().HourlyTotal},
		{b.Totals().DriverShareAmount, got.Totals().DriverShareAmount},
		{b.NetPay(), got.NetPay()},
	} {
		assert.Equal(t, pair[0].String(), pair[1].String())
	}
}

func TestStore_GetMissing(t *testing.T) {
	_, err := newStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
}

func TestStore_DuplicateBatchNumber(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Create(ctx, newBatch(t, "B-1", "drv-1", 1)))

	err := store.Create(ctx, newBatch(t, "B-1", "drv-2", 8))
	assert.ErrorIs(t, err, payroll.ErrDuplicateBatchNumber)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Create(ctx, newBatch(t, "B-3", "drv-1", 15)))
	require.NoError(t, store.Create(ctx, newBatch(t, "B-1", "drv-1", 1)))
	require.NoError(t, store.Create(ctx, newBatch(t, "B-2", "drv-2", 8)))

	all, err := store.List(ctx, payroll.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "B-1", all[0].BatchNumber())
	assert.Equal(t, "B-3", all[2].BatchNumber())

	mine, err := store.List(ctx, payroll.Filter{DriverID: "drv-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	drafts, err := store.List(ctx, payroll.Filter{DriverID: "drv-2", Status: payroll.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "B-2", drafts[0].BatchNumber())
}

func TestStore_SaveRejectsStaleVersion(t *testing.T) {
	// GIVEN: two readers of the same batch
	ctx := context.Background()
	store := newStore(t)
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, store.Create(ctx, b))

	first, err := store.Get(ctx, b.ID())
	require.NoError(t, err)
	second, err := store.Get(ctx, b.ID())
	require.NoError(t, err)

	// WHEN: both save
	require.NoError(t, first.SetStatus(payroll.StatusApproved))
	require.NoError(t, store.Save(ctx, first))

	_, err = second.AddLoad(payroll.LoadInput{LoadNumber: "L-late", LegMiles: decimal.NewFromInt(10), Rate: decimal.NewFromInt(1)})
	require.NoError(t, err)
	err = store.Save(ctx, second)

	// THEN: the stale write is refused and the approved batch has no load
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)

	got, err := store.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusApproved, got.Status())
	assert.Equal(t, 2, got.Version())
	assert.Empty(t, got.Loads())
}

func TestStore_SaveMissing(t *testing.T) {
	err := newStore(t).Save(context.Background(), newBatch(t, "B-1", "drv-1", 1))
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, store.Create(ctx, b))

	got, err := store.Update(ctx, b.ID(), func(b *payroll.Batch) error {
		_, err := b.AddLoad(payroll.LoadInput{LoadNumber: "L-1", LegMiles: decimal.NewFromInt(100), Rate: decimal.RequireFromString("0.65")})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version())
	assert.Equal(t, "65.00", got.Totals().TripTotal.String())

	got, err = store.Update(ctx, b.ID(), func(b *payroll.Batch) error {
		_, err := b.AddWait(payroll.WaitInput{WaitMinutes: 30, RatePerMinute: decimal.NewFromInt(1)})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "36.79", got.NetPay().String())
}

func TestStore_UpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, store.Create(ctx, b))

	boom := errors.New("boom")
	_, err := store.Update(ctx, b.ID(), func(b *payroll.Batch) error {
		if _, err := b.AddHourly(payroll.HourlyInput{Hours: 1, RatePerHour: decimal.NewFromInt(20)}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Empty(t, got.Hourlies())
	assert.Equal(t, 1, got.Version())
}

func TestStore_UpdateFrozenBatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, b.SetStatus(payroll.StatusPaid))
	require.NoError(t, store.Create(ctx, b))

	_, err := store.Update(ctx, b.ID(), func(b *payroll.Batch) error {
		_, err := b.AddLoad(payroll.LoadInput{LoadNumber: "L-1"})
		return err
	})
	assert.ErrorIs(t, err, payroll.ErrNotMutable)
}

// =============================================================================
// RATE TABLES / TAX PROFILES
// =============================================================================

func TestStore_RateTables(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.GetRateTable(ctx, "qc")
	assert.ErrorIs(t, err, payroll.ErrRateTableNotFound)

	table, err := payroll.NewRateTable("qc", "Quebec", []payroll.RateBand{
		{Band: 2, MinMiles: decimal.RequireFromString("150.01"), MaxMiles: decimal.NewFromInt(2000), BandName: "FLAT", ContainerRate: decimal.NewFromInt(450), FlatbedRate: decimal.NewFromInt(500)},
		{Band: 1, MinMiles: decimal.Zero, MaxMiles: decimal.NewFromInt(150), BandName: "SHORT", LoadType: payroll.LoadContainer, ContainerRate: decimal.RequireFromString("0.65"), FlatbedRate: decimal.RequireFromString("0.70")},
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveRateTable(ctx, table))

	got, err := store.GetRateTable(ctx, "qc")
	require.NoError(t, err)
	assert.Equal(t, "Quebec", got.Name)
	require.Len(t, got.Bands, 2)
	assert.Equal(t, 1, got.Bands[0].Band)
	assert.Equal(t, payroll.LoadContainer, got.Bands[0].LoadType)
	assert.Equal(t, "65.00", got.BasePay("", decimal.NewFromInt(100)).String())
	assert.Equal(t, "450.00", got.BasePay(payroll.LoadContainer, decimal.NewFromInt(900)).String())

	// Replacing a table replaces its bands.
	table.Name = "Quebec v2"
	table.Bands = table.Bands[:1]
	require.NoError(t, store.SaveRateTable(ctx, table))

	all, err := store.ListRateTables(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Quebec v2", all[0].Name)
	assert.Len(t, all[0].Bands, 1)
}

func TestStore_TaxProfiles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	nb, err := tax.NewProfile("NB", tax.Rates{HST: decimal.RequireFromString("0.15")})
	require.NoError(t, err)
	require.NoError(t, store.SaveTaxProfile(ctx, "nb", nb))
	require.NoError(t, store.SaveTaxProfile(ctx, "QC", tax.Quebec()))

	profiles, err := store.ListTaxProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.True(t, profiles["NB"].HSTRate().Equal(decimal.RequireFromString("0.15")))
	assert.True(t, profiles["QC"].CompoundQSTOverGST())
	assert.True(t, profiles["QC"].QSTRate().Equal(tax.DefaultQSTRate))

	assert.ErrorIs(t, store.SaveTaxProfile(ctx, "XX", nil), tax.ErrProfileRequired)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Create(ctx, newBatch(t, "B-1", "drv-1", 1)))
	require.NoError(t, store.SaveTaxProfile(ctx, "QC", tax.Quebec()))

	require.NoError(t, store.Reset(ctx))

	all, err := store.List(ctx, payroll.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	// Tax profiles survive; the process registry still holds them.
	profiles, err := store.ListTaxProfiles(ctx)
	require.NoError(t, err)
	assert.Contains(t, profiles, "QC")
}

func TestStore_TimestampsSurvive(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	created := time.Date(2025, 3, 16, 9, 30, 15, 0, time.UTC)
	b, err := payroll.NewBatch(payroll.BatchInput{
		BatchNumber:        "B-1",
		DriverID:           "drv-1",
		StatementStartDate: payroll.Date(2025, 3, 1),
		StatementEndDate:   payroll.Date(2025, 3, 15),
		CreatedAt:          created,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, b))

	got, err := store.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt()))
}

func TestStore_History(t *testing.T) {
	// GIVEN: a stored batch and a service recording into the same database
	ctx := context.Background()
	store := newStore(t)
	svc := payroll.NewService(store, store, nil)
	svc.History = store

	b, err := svc.CreateBatch(ctx, payroll.BatchInput{
		BatchNumber:             "B-1",
		DriverID:                "drv-1",
		StatementStartDate:      payroll.Date(2025, 3, 1),
		StatementEndDate:        payroll.Date(2025, 3, 15),
		WaitingPayoutPercentage: decimal.RequireFromString("0.5"),
		DriverSharePercentage:   decimal.RequireFromString("0.40"),
	})
	require.NoError(t, err)

	// WHEN
	_, err = svc.AddWait(ctx, b.ID(), payroll.WaitInput{WaitMinutes: 30, RatePerMinute: decimal.RequireFromString("1.00")})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, b.ID(), payroll.StatusPaid)
	require.NoError(t, err)

	// THEN
	events, err := store.Events(ctx, b.ID())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []payroll.EventKind{payroll.EventCreated, payroll.EventEntryAdded, payroll.EventStatusChanged},
		[]payroll.EventKind{events[0].Kind, events[1].Kind, events[2].Kind})
	assert.Equal(t, "", events[0].Detail)
	assert.Equal(t, "wait", events[1].Detail)
	assert.Equal(t, "6.90", events[1].NetPay.String())
	assert.Equal(t, payroll.StatusPaid, events[2].Status)
	assert.False(t, events[2].At.IsZero())

	// AND: history is append-only per version
	err = store.AppendEvent(ctx, events[1])
	assert.ErrorIs(t, err, payroll.ErrDuplicateEvent)

	// AND: Reset clears it
	require.NoError(t, store.Reset(ctx))
	events, err = store.Events(ctx, b.ID())
	require.NoError(t, err)
	assert.Empty(t, events)
}
