package api

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/driver-payroll/factory"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/payroll/store"
)

// countingRates counts reads that reach the backing store.
type countingRates struct {
	*store.Memory
	gets atomic.Int32
}

func (c *countingRates) GetRateTable(ctx context.Context, id string) (payroll.RateTable, error) {
	c.gets.Add(1)
	return c.Memory.GetRateTable(ctx, id)
}

func standardTable(t *testing.T) payroll.RateTable {
	t.Helper()
	table, err := factory.NewConfigFactory().ParseRateTable(factory.DefaultRateTableJSON())
	require.NoError(t, err)
	return table
}

func TestRateCache_ReadThrough(t *testing.T) {
	// GIVEN: a table saved behind the cache's back
	ctx := context.Background()
	backing := &countingRates{Memory: store.NewMemory()}
	require.NoError(t, backing.SaveRateTable(ctx, standardTable(t)))
	cache, err := newRateCache(backing, 4)
	require.NoError(t, err)

	// WHEN: read twice
	for i := 0; i < 2; i++ {
		got, err := cache.GetRateTable(ctx, factory.DefaultRateTableID)
		require.NoError(t, err)
		assert.Len(t, got.Bands, 3)
	}

	// THEN: the store was hit once
	assert.Equal(t, int32(1), backing.gets.Load())
}

func TestRateCache_WriteThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingRates{Memory: store.NewMemory()}
	cache, err := newRateCache(backing, 4)
	require.NoError(t, err)

	require.NoError(t, cache.SaveRateTable(ctx, standardTable(t)))
	_, err = cache.GetRateTable(ctx, factory.DefaultRateTableID)
	require.NoError(t, err)

	assert.Zero(t, backing.gets.Load())
	_, err = backing.Memory.GetRateTable(ctx, factory.DefaultRateTableID)
	assert.NoError(t, err)
}

func TestRateCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache, err := newRateCache(store.NewMemory(), 4)
	require.NoError(t, err)
	require.NoError(t, cache.SaveRateTable(ctx, standardTable(t)))

	got, err := cache.GetRateTable(ctx, factory.DefaultRateTableID)
	require.NoError(t, err)
	got.Bands[0].BandName = "CHANGED"

	again, err := cache.GetRateTable(ctx, factory.DefaultRateTableID)
	require.NoError(t, err)
	assert.Equal(t, "SHORT", again.Bands[0].BandName)
}

func TestRateCache_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	backing := &countingRates{Memory: store.NewMemory()}
	cache, err := newRateCache(backing, 4)
	require.NoError(t, err)

	_, err = cache.GetRateTable(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrRateTableNotFound)
	_, err = cache.GetRateTable(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrRateTableNotFound)
	assert.Equal(t, int32(2), backing.gets.Load())
}

func TestRateCache_InvalidSize(t *testing.T) {
	_, err := newRateCache(store.NewMemory(), 0)
	assert.Error(t, err)
}

// =============================================================================
// REFRESH SCHEDULER
// =============================================================================

func TestRateRefresh_PicksUpExternalWrites(t *testing.T) {
	// GIVEN: a cached table, then a replacement written straight to the database
	s := setupTestServer(t)
	ctx := context.Background()
	table := standardTable(t)
	require.NoError(t, s.h.rates.SaveRateTable(ctx, table))

	table.Name = "Standard drayage 2026"
	require.NoError(t, s.h.Store.SaveRateTable(ctx, table))

	cached, err := s.h.rates.GetRateTable(ctx, table.ID)
	require.NoError(t, err)
	require.Equal(t, "Standard drayage", cached.Name)

	// WHEN
	n := NewRateRefreshScheduler(s.h, time.Hour).Refresh(ctx)

	// THEN
	assert.Equal(t, 1, n)
	cached, err = s.h.rates.GetRateTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standard drayage 2026", cached.Name)
}

func TestRateRefresh_StartStop(t *testing.T) {
	s := setupTestServer(t)

	rs := NewRateRefreshScheduler(s.h, 10*time.Millisecond)
	require.True(t, rs.Enabled)
	rs.Start()
	rs.Start()

	assert.Eventually(t, func() bool {
		return s.logs.FilterMessage("rate tables refreshed").Len() > 0
	}, time.Second, 5*time.Millisecond)

	rs.Stop()
	rs.Stop()
	assert.Equal(t, 1, s.logs.FilterMessage("rate refresh started").Len())
	assert.Equal(t, 1, s.logs.FilterMessage("rate refresh stopped").Len())
}

func TestRateRefresh_Restart(t *testing.T) {
	s := setupTestServer(t)

	// GIVEN: a scheduler that was started and stopped
	rs := NewRateRefreshScheduler(s.h, 10*time.Millisecond)
	rs.Start()
	rs.Stop()
	before := s.logs.FilterMessage("rate tables refreshed").Len()

	// WHEN: it is started again
	rs.Start()
	defer rs.Stop()

	// THEN: it refreshes again
	assert.Eventually(t, func() bool {
		return s.logs.FilterMessage("rate tables refreshed").Len() > before
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, s.logs.FilterMessage("rate refresh started").Len())
}

func TestRateRefresh_DisabledWithZeroInterval(t *testing.T) {
	s := setupTestServer(t)

	rs := NewRateRefreshScheduler(s.h, 0)
	rs.Start()
	rs.Stop()

	assert.False(t, rs.Enabled)
	assert.Equal(t, 1, s.logs.FilterMessage("rate refresh disabled").Len())
	assert.Zero(t, s.logs.FilterMessage("rate refresh started").Len())
}
