package payroll

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// SERVICE - Store-backed batch lifecycle
// =============================================================================

// Service runs batch operations against a Store. Each mutation goes through
// Store.Update, so a batch is mutated by one caller at a time.
type Service struct {
	Store   Store
	Rates   RateTableStore // optional, required by AddLoadFromTable
	History History        // optional event log
	Logger  *zap.Logger
}

// NewService wires a service. A nil logger is replaced with a no-op logger.
func NewService(store Store, rates RateTableStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Store: store, Rates: rates, Logger: logger}
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// CreateBatch constructs and persists a new Draft batch.
func (s *Service) CreateBatch(ctx context.Context, in BatchInput) (*Batch, error) {
	b, err := NewBatch(in)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create batch %s: %w", b.BatchNumber(), err)
	}

	s.log().Info("batch created",
		zap.String("batch_id", string(b.ID())),
		zap.String("batch_number", b.BatchNumber()),
		zap.String("driver_id", string(b.DriverID())),
		zap.Stringer("period", b.Period()),
	)
	stored, err := s.Store.Get(ctx, b.ID())
	if err != nil {
		return nil, err
	}
	s.record(ctx, stored, EventCreated, "")
	return stored, nil
}

func (s *Service) GetBatch(ctx context.Context, id BatchID) (*Batch, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) ListBatches(ctx context.Context, f Filter) ([]*Batch, error) {
	return s.Store.List(ctx, f)
}

// AddLoad appends a load to a Draft batch.
func (s *Service) AddLoad(ctx context.Context, id BatchID, in LoadInput) (*Batch, error) {
	return s.mutate(ctx, id, "load", func(b *Batch) error {
		_, err := b.AddLoad(in)
		return err
	})
}

// AddLoadFromTable prices the load through a rate table: the rate type, rate
// and band label of in are replaced by the table's terms for its load type and
// mileage. Mileage no band covers yields a zero-rate load, not an error. A load
// type the matching band cannot price (empty, with no band default) is
// rejected.
func (s *Service) AddLoadFromTable(ctx context.Context, id BatchID, tableID string, in LoadInput) (*Batch, error) {
	if s.Rates == nil {
		return nil, fmt.Errorf("rate table %s: %w", tableID, ErrRateTableNotFound)
	}
	table, err := s.Rates.GetRateTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("rate table %s: %w", tableID, err)
	}

	if band, ok := table.Select(in.LegMiles); ok {
		if _, ok := band.RateFor(in.LoadType); !ok {
			return nil, invalid("load_type", "band %s has no rate for load type %q", band.Label(), in.LoadType)
		}
	}

	in.RateType, in.Rate, in.BandLabel = table.Terms(in.LoadType, in.LegMiles)
	if in.BandLabel == "" {
		s.log().Warn("no rate band matches load mileage, pricing at zero",
			zap.String("batch_id", string(id)),
			zap.String("rate_table_id", tableID),
			zap.String("load_number", in.LoadNumber),
			zap.Stringer("leg_miles", in.LegMiles),
		)
	}
	return s.AddLoad(ctx, id, in)
}

// AddWait appends a wait to a Draft batch.
func (s *Service) AddWait(ctx context.Context, id BatchID, in WaitInput) (*Batch, error) {
	return s.mutate(ctx, id, "wait", func(b *Batch) error {
		_, err := b.AddWait(in)
		return err
	})
}

// AddHourly appends an hourly entry to a Draft batch.
func (s *Service) AddHourly(ctx context.Context, id BatchID, in HourlyInput) (*Batch, error) {
	return s.mutate(ctx, id, "hourly", func(b *Batch) error {
		_, err := b.AddHourly(in)
		return err
	})
}

// SetStatus records a new status for the batch.
func (s *Service) SetStatus(ctx context.Context, id BatchID, status Status) (*Batch, error) {
	var from Status
	b, err := s.Store.Update(ctx, id, func(b *Batch) error {
		from = b.Status()
		return b.SetStatus(status)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("batch status changed",
		zap.String("batch_id", string(id)),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	s.record(ctx, b, EventStatusChanged, string(from))
	return b, nil
}

func (s *Service) mutate(ctx context.Context, id BatchID, kind string, fn func(*Batch) error) (*Batch, error) {
	b, err := s.Store.Update(ctx, id, fn)
	if err != nil {
		if !IsClientError(err) && !IsNotFound(err) && !errors.Is(err, ErrNotMutable) {
			s.log().Error("failed to add entry",
				zap.String("batch_id", string(id)),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.log().Info("batch entry added",
		zap.String("batch_id", string(id)),
		zap.String("kind", kind),
		zap.Stringer("net_pay", b.NetPay()),
	)
	s.record(ctx, b, EventEntryAdded, kind)
	return b, nil
}

// BatchHistory returns the events of an existing batch in version order.
func (s *Service) BatchHistory(ctx context.Context, id BatchID) ([]Event, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.History == nil {
		return []Event{}, nil
	}
	return s.History.Events(ctx, id)
}

// record appends to the history after the batch write has committed. A
// failed append is logged; the write it describes stands.
func (s *Service) record(ctx context.Context, b *Batch, kind EventKind, detail string) {
	if s.History == nil {
		return
	}
	if err := s.History.AppendEvent(ctx, NewEvent(b, kind, detail)); err != nil {
		s.log().Error("failed to record batch event",
			zap.String("batch_id", string(b.ID())),
			zap.String("event", string(kind)),
			zap.Int("version", b.Version()),
			zap.Error(err),
		)
	}
}
