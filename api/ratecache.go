package api

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/warp/driver-payroll/payroll"
)

// rateCache is a read-through, write-through LRU in front of a
// payroll.RateTableStore. Load pricing looks a table up on every request.
type rateCache struct {
	store payroll.RateTableStore
	cache *lru.Cache[string, payroll.RateTable]
}

var _ payroll.RateTableStore = (*rateCache)(nil)

func newRateCache(store payroll.RateTableStore, size int) (*rateCache, error) {
	cache, err := lru.New[string, payroll.RateTable](size)
	if err != nil {
		return nil, err
	}
	return &rateCache{store: store, cache: cache}, nil
}

func (c *rateCache) SaveRateTable(ctx context.Context, t payroll.RateTable) error {
	if err := c.store.SaveRateTable(ctx, t); err != nil {
		return err
	}
	c.cache.Add(t.ID, cloneTable(t))
	return nil
}

func (c *rateCache) GetRateTable(ctx context.Context, id string) (payroll.RateTable, error) {
	if t, ok := c.cache.Get(id); ok {
		return cloneTable(t), nil
	}
	t, err := c.store.GetRateTable(ctx, id)
	if err != nil {
		return payroll.RateTable{}, err
	}
	c.cache.Add(id, cloneTable(t))
	return t, nil
}

func (c *rateCache) ListRateTables(ctx context.Context) ([]payroll.RateTable, error) {
	return c.store.ListRateTables(ctx)
}

// warm loads every stored table into the cache, up to its size.
func (c *rateCache) warm(ctx context.Context) (int, error) {
	tables, err := c.store.ListRateTables(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tables {
		c.cache.Add(t.ID, cloneTable(t))
	}
	return c.cache.Len(), nil
}

func (c *rateCache) purge() { c.cache.Purge() }

func cloneTable(t payroll.RateTable) payroll.RateTable {
	t.Bands = append([]payroll.RateBand(nil), t.Bands...)
	return t
}
