/*
history.go - Append-only batch event log

PURPOSE:
  Records what happened to a batch and when: creation, each entry added,
  each status change. The batch itself only holds its current state; the
  history answers "who approved this and what was net pay at the time?".

INVARIANTS:
  1. APPEND-ONLY: events are never updated or deleted
  2. ONE EVENT PER VERSION: (BatchID, Version) is unique; a second append
     for the same version fails with ErrDuplicateEvent
  3. Events are returned in version order

  The history is an audit trail, not the source of truth. Totals are always
  recomputed from the batch entries.

SEE ALSO:
  - service.go: appends events after each successful write
  - store/sqlite/sqlite.go: batch_events table
*/
package payroll

import (
	"context"
	"time"

	"github.com/warp/driver-payroll/money"
)

// EventKind classifies a batch event.
type EventKind string

const (
	EventCreated       EventKind = "created"
	EventEntryAdded    EventKind = "entry_added"
	EventStatusChanged EventKind = "status_changed"
)

// Event is one immutable history record.
type Event struct {
	BatchID BatchID
	Version int // batch version after the change
	Kind    EventKind

	// Detail is the entry kind (load, wait, hourly) for EventEntryAdded and
	// the previous status for EventStatusChanged.
	Detail string

	Status Status       // status after the change
	NetPay money.Amount // net pay after the change
	At     time.Time
}

// NewEvent snapshots b after a change.
func NewEvent(b *Batch, kind EventKind, detail string) Event {
	return Event{
		BatchID: b.ID(),
		Version: b.Version(),
		Kind:    kind,
		Detail:  detail,
		Status:  b.Status(),
		NetPay:  b.NetPay(),
		At:      b.UpdatedAt(),
	}
}

// History persists batch events.
type History interface {
	// AppendEvent adds an event. Fails with ErrDuplicateEvent if the batch
	// already has an event for that version. This is the only write.
	AppendEvent(ctx context.Context, e Event) error

	// Events returns the batch's events in version order. An unknown batch
	// has no events.
	Events(ctx context.Context, id BatchID) ([]Event, error)
}
