/*
store.go - Persistence interfaces for batches and rate tables

PURPOSE:
  Defines the boundary between the engine and a database. The engine never
  loads or saves anything itself; Service drives a Store.

AT-MOST-ONE MUTATION PER BATCH:
  A Batch is not safe for concurrent mutation, so the Store is where
  mutations are serialized. Every stored batch carries a version:
  - Save writes only if the batch's version matches the stored one, then
    bumps it. A stale batch gets ErrConcurrentModification.
  - Update runs load -> fn -> save as one atomic unit.

RECOMPUTE ON LOAD:
  Stores persist a Record (inputs + status), never totals. Get rebuilds the
  batch with RestoreBatch so the totals always come from the entries.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite
*/
package payroll

import "context"

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	DriverID DriverID
	Status   Status
}

// Matches reports whether b passes the filter.
func (f Filter) Matches(b *Batch) bool {
	if f.DriverID != "" && b.DriverID() != f.DriverID {
		return false
	}
	if f.Status != "" && b.Status() != f.Status {
		return false
	}
	return true
}

// Store persists batches.
type Store interface {
	// Create persists a new batch. Fails with ErrDuplicateBatchNumber if the
	// batch number is taken.
	Create(ctx context.Context, b *Batch) error

	// Get returns the batch or ErrBatchNotFound.
	Get(ctx context.Context, id BatchID) (*Batch, error)

	// List returns batches matching f, ordered by statement start date then number.
	List(ctx context.Context, f Filter) ([]*Batch, error)

	// Save writes b if its version matches the stored version.
	Save(ctx context.Context, b *Batch) error

	// Update loads the batch, applies fn and saves it atomically. If fn
	// returns an error nothing is written.
	Update(ctx context.Context, id BatchID, fn func(*Batch) error) (*Batch, error)
}

// RateTableStore persists rate tables.
type RateTableStore interface {
	SaveRateTable(ctx context.Context, t RateTable) error

	// GetRateTable returns the table or ErrRateTableNotFound.
	GetRateTable(ctx context.Context, id string) (RateTable, error)

	ListRateTables(ctx context.Context) ([]RateTable, error)
}
