/*
scheduler.go - Periodic rate table cache refresh

PURPOSE:
  Reloads the rate table cache from the database on a fixed interval, so
  tables written by another server sharing the database are picked up
  without a restart.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each pass purges the cache and warms it from the store
  - A failed pass is logged and leaves the cache empty; lookups then
    read through to the store

CONFIGURATION:
  - Interval: How often to refresh (PAYROLL_RATE_REFRESH, default 5m)
  - Enabled:  False when the interval is zero

USAGE:
  scheduler := NewRateRefreshScheduler(handler, cfg.RateRefresh)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - ratecache.go: The cache being refreshed
  - handlers.go: LoadRateTables (initial warm)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateRefreshScheduler periodically reloads the handler's rate cache.
type RateRefreshScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRateRefreshScheduler creates a scheduler. A zero interval disables it.
func NewRateRefreshScheduler(h *Handler, interval time.Duration) *RateRefreshScheduler {
	return &RateRefreshScheduler{
		Handler:  h,
		Interval: interval,
		Enabled:  interval > 0,
	}
}

// Start begins the scheduler.
func (rs *RateRefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Handler.Logger.Info("rate refresh disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run(rs.ticker, rs.stop)

	rs.Handler.Logger.Info("rate refresh started", zap.Duration("interval", rs.Interval))
}

// Stop stops the scheduler and waits for an in-flight refresh.
func (rs *RateRefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Handler.Logger.Info("rate refresh stopped")
}

func (rs *RateRefreshScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.Refresh(context.Background())
		case <-stop:
			return
		}
	}
}

// Refresh purges the cache and reloads it. It returns the number of tables
// cached.
func (rs *RateRefreshScheduler) Refresh(ctx context.Context) int {
	rs.Handler.rates.purge()
	n, err := rs.Handler.rates.warm(ctx)
	if err != nil {
		rs.Handler.Logger.Warn("rate refresh failed", zap.Error(err))
		return 0
	}
	rs.Handler.Logger.Debug("rate tables refreshed", zap.Int("count", n))
	return n
}
