package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/payroll/store"
)

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

func load(number string) payroll.LoadInput {
	return payroll.LoadInput{
		LoadNumber: number,
		LegMiles:   decimal.NewFromInt(100),
		Rate:       decimal.RequireFromString("0.65"),
	}
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	b := newBatch(t, "B-1", "drv-1", 1)
	_, err := b.AddLoad(load("L-1"))
	require.NoError(t, err)

	require.NoError(t, m.Create(ctx, b))

	got, err := m.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version())
	assert.Equal(t, "65.00", got.Totals().TripTotal.String())
	assert.Equal(t, b.NetPay().String(), got.NetPay().String())
}

func TestMemory_GetMissing(t *testing.T) {
	_, err := store.NewMemory().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, payroll.ErrBatchNotFound)
}

func TestMemory_DuplicateBatchNumber(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Create(ctx, newBatch(t, "B-1", "drv-1", 1)))

	err := m.Create(ctx, newBatch(t, "B-1", "drv-2", 8))
	assert.ErrorIs(t, err, payroll.ErrDuplicateBatchNumber)
}

func TestMemory_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Create(ctx, newBatch(t, "B-3", "drv-1", 15)))
	require.NoError(t, m.Create(ctx, newBatch(t, "B-1", "drv-1", 1)))
	require.NoError(t, m.Create(ctx, newBatch(t, "B-2", "drv-2", 8)))

	all, err := m.List(ctx, payroll.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "B-1", all[0].BatchNumber())
	assert.Equal(t, "B-2", all[1].BatchNumber())
	assert.Equal(t, "B-3", all[2].BatchNumber())

	mine, err := m.List(ctx, payroll.Filter{DriverID: "drv-1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	approved, err := m.List(ctx, payroll.Filter{Status: payroll.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)
}

func TestMemory_SaveRejectsStaleVersion(t *testing.T) {
	// GIVEN: two copies of the same stored batch
	ctx := context.Background()
	m := store.NewMemory()
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, m.Create(ctx, b))

	first, err := m.Get(ctx, b.ID())
	require.NoError(t, err)
	second, err := m.Get(ctx, b.ID())
	require.NoError(t, err)

	// WHEN: both are modified and saved
	_, err = first.AddLoad(load("L-1"))
	require.NoError(t, err)
	require.NoError(t, m.Save(ctx, first))

	_, err = second.AddLoad(load("L-2"))
	require.NoError(t, err)
	err = m.Save(ctx, second)

	// THEN: the second save loses
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)
	assert.True(t, payroll.IsRetryable(err))

	got, err := m.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version())
	require.Len(t, got.Loads(), 1)
	assert.Equal(t, "L-1", got.Loads()[0].LoadNumber())
}

func TestMemory_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, m.Create(ctx, b))

	boom := errors.New("boom")
	_, err := m.Update(ctx, b.ID(), func(b *payroll.Batch) error {
		if _, err := b.AddLoad(load("L-1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Empty(t, got.Loads())
	assert.Equal(t, 1, got.Version())
}

func TestMemory_ConcurrentUpdatesAllApply(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	b := newBatch(t, "B-1", "drv-1", 1)
	require.NoError(t, m.Create(ctx, b))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, b.ID(), func(b *payroll.Batch) error {
				_, err := b.AddLoad(load("L"))
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, b.ID())
	require.NoError(t, err)
	assert.Len(t, got.Loads(), workers)
	assert.Equal(t, workers+1, got.Version())
	assert.Equal(t, "1300.00", got.Totals().TripTotal.String())
}

func TestMemory_RateTables(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.GetRateTable(ctx, "qc")
	assert.ErrorIs(t, err, payroll.ErrRateTableNotFound)

	table, err := payroll.NewRateTable("qc", "Quebec", []payroll.RateBand{{
		Band:          1,
		MaxMiles:      decimal.NewFromInt(150),
		BandName:      "SHORT",
		ContainerRate: decimal.RequireFromString("0.65"),
	}})
	require.NoError(t, err)
	require.NoError(t, m.SaveRateTable(ctx, table))

	got, err := m.GetRateTable(ctx, "qc")
	require.NoError(t, err)
	assert.Equal(t, "Quebec", got.Name)
	require.Len(t, got.Bands, 1)

	got.Bands[0].BandName = "mutated"
	again, err := m.GetRateTable(ctx, "qc")
	require.NoError(t, err)
	assert.Equal(t, "SHORT", again.Bands[0].BandName)

	all, err := m.ListRateTables(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemory_History(t *testing.T) {
	// GIVEN: events appended out of order
	ctx := context.Background()
	m := store.NewMemory()
	b := newBatch(t, "B-1", "drv-1", 1)

	second := payroll.NewEvent(b, payroll.EventEntryAdded, "load")
	second.Version = 2
	first := payroll.NewEvent(b, payroll.EventCreated, "")
	first.Version = 1
	require.NoError(t, m.AppendEvent(ctx, second))
	require.NoError(t, m.AppendEvent(ctx, first))

	// WHEN / THEN: returned in version order
	events, err := m.Events(ctx, b.ID())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, payroll.EventCreated, events[0].Kind)
	assert.Equal(t, payroll.EventEntryAdded, events[1].Kind)

	// AND: one event per version
	assert.ErrorIs(t, m.AppendEvent(ctx, first), payroll.ErrDuplicateEvent)

	none, err := m.Events(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
