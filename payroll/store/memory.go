// Package store provides in-memory payroll.Store, payroll.RateTableStore and
// payroll.History implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/driver-payroll/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[payroll.BatchID]payroll.Record
	numbers map[string]payroll.BatchID
	tables  map[string]payroll.RateTable
	events  map[payroll.BatchID][]payroll.Event
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[payroll.BatchID]payroll.Record),
		numbers: make(map[string]payroll.BatchID),
		tables:  make(map[string]payroll.RateTable),
		events:  make(map[payroll.BatchID][]payroll.Event),
	}
}

var (
	_ payroll.Store          = (*Memory)(nil)
	_ payroll.RateTableStore = (*Memory)(nil)
	_ payroll.History        = (*Memory)(nil)
)

func (m *Memory) Create(_ context.Context, b *payroll.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.numbers[b.BatchNumber()]; taken {
		return payroll.ErrDuplicateBatchNumber
	}
	if _, exists := m.records[b.ID()]; exists {
		return payroll.ErrDuplicateBatchNumber
	}

	r := b.Record()
	r.Version = 1
	m.records[b.ID()] = r
	m.numbers[b.BatchNumber()] = b.ID()
	return nil
}

func (m *Memory) Get(_ context.Context, id payroll.BatchID) (*payroll.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id payroll.BatchID) (*payroll.Batch, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, payroll.ErrBatchNotFound
	}
	return payroll.RestoreBatch(r)
}

func (m *Memory) List(_ context.Context, f payroll.Filter) ([]*payroll.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*payroll.Batch
	for id := range m.records {
		b, err := m.getLocked(id)
		if err != nil {
			return nil, err
		}
		if f.Matches(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		si, sj := result[i].StatementStartDate(), result[j].StatementStartDate()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return result[i].BatchNumber() < result[j].BatchNumber()
	})
	return result, nil
}

func (m *Memory) Save(_ context.Context, b *payroll.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(b)
}

func (m *Memory) saveLocked(b *payroll.Batch) error {
	stored, ok := m.records[b.ID()]
	if !ok {
		return payroll.ErrBatchNotFound
	}
	if stored.Version != b.Version() {
		return payroll.ErrConcurrentModification
	}
	r := b.Record()
	r.Version = stored.Version + 1
	m.records[b.ID()] = r
	return nil
}

// Update holds the write lock across load, fn and save.
func (m *Memory) Update(_ context.Context, id payroll.BatchID, fn func(*payroll.Batch) error) (*payroll.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.getLocked(id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := m.saveLocked(b); err != nil {
		return nil, err
	}
	return m.getLocked(id)
}

// =============================================================================
// RATE TABLES
// =============================================================================

func (m *Memory) SaveRateTable(_ context.Context, t payroll.RateTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Bands = append([]payroll.RateBand(nil), t.Bands...)
	m.tables[t.ID] = t
	return nil
}

func (m *Memory) GetRateTable(_ context.Context, id string) (payroll.RateTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return payroll.RateTable{}, payroll.ErrRateTableNotFound
	}
	t.Bands = append([]payroll.RateBand(nil), t.Bands...)
	return t, nil
}

func (m *Memory) ListRateTables(_ context.Context) ([]payroll.RateTable, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]payroll.RateTable, 0, len(m.tables))
	for _, t := range m.tables {
		t.Bands = append([]payroll.RateBand(nil), t.Bands...)
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// HISTORY
// =============================================================================

func (m *Memory) AppendEvent(_ context.Context, e payroll.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events[e.BatchID] {
		if existing.Version == e.Version {
			return payroll.ErrDuplicateEvent
		}
	}
	m.events[e.BatchID] = append(m.events[e.BatchID], e)
	return nil
}

func (m *Memory) Events(_ context.Context, id payroll.BatchID) ([]payroll.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := append([]payroll.Event{}, m.events[id]...)
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}
