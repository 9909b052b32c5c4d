/*
Package sqlite provides a SQLite-backed implementation of the payroll storage
interfaces.

PURPOSE:
  Implements payroll.Store, payroll.RateTableStore and payroll.History
  using SQLite, plus the tax profile table the server loads into the tax
  registry at startup. In production the same patterns apply to PostgreSQL
  with minor dialect changes.

INTERFACES IMPLEMENTED:
  payroll.Store:          Batches and their entries
  payroll.RateTableStore: Rate tables and bands
  payroll.History:        Append-only batch events

WHAT IS STORED:
  A batch is stored as its construction inputs, its entry inputs and its
  status. Totals are NOT stored: Get rebuilds the batch through
  payroll.RestoreBatch, so every figure is recomputed from the entries.
  Decimals are stored as TEXT to keep them exact.

KEY TABLES:
  batches:        One row per statement, with a version column
  batch_loads:    Load inputs, ordered by seq
  batch_waits:    Wait inputs, ordered by seq
  batch_hourlies: Hourly inputs, ordered by seq
  batch_events:   Batch history, one row per version, never updated
  rate_tables:    Rate table headers
  rate_bands:     Bands per table
  tax_profiles:   Jurisdiction tax rates

OPTIMISTIC CONCURRENCY:
  Save runs UPDATE ... WHERE id = ? AND version = ?. Zero affected rows
  means another writer got there first (ErrConcurrentModification). Update
  runs load -> fn -> save inside one SQL transaction.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewService(store, store, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/tax"
)

// Store implements the payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ payroll.Store          = (*Store)(nil)
	_ payroll.RateTableStore = (*Store)(nil)
	_ payroll.History        = (*Store)(nil)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	if strings.HasPrefix(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Batches (driver statements)
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		batch_number TEXT NOT NULL UNIQUE,
		driver_id TEXT NOT NULL,
		statement_start_date TEXT NOT NULL,
		statement_end_date TEXT NOT NULL,
		waiting_payout_percentage TEXT NOT NULL,
		driver_share_percentage TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_driver
		ON batches(driver_id);
	CREATE INDEX IF NOT EXISTS idx_batches_status
		ON batches(status);
	CREATE INDEX IF NOT EXISTS idx_batches_start_number
		ON batches(statement_start_date, batch_number);

	-- Entries, in insertion order per batch
	CREATE TABLE IF NOT EXISTS batch_loads (
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		load_number TEXT NOT NULL,
		reference_number TEXT,
		origin_code TEXT,
		destination_code TEXT,
		date TEXT,
		leg_miles TEXT NOT NULL,
		load_type TEXT,
		rate_type TEXT NOT NULL,
		rate TEXT NOT NULL,
		band_label TEXT,
		fsc_pay TEXT NOT NULL,
		temporary_emergency_fuel_pay TEXT NOT NULL,
		PRIMARY KEY (batch_id, seq)
	);

	CREATE TABLE IF NOT EXISTS batch_waits (
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		reference TEXT,
		date TEXT,
		wait_minutes INTEGER NOT NULL,
		rate_per_minute TEXT NOT NULL,
		multiplier TEXT,
		invoice_pay TEXT,
		PRIMARY KEY (batch_id, seq)
	);

	CREATE TABLE IF NOT EXISTS batch_hourlies (
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		date TEXT,
		hours INTEGER NOT NULL,
		minutes INTEGER NOT NULL,
		rate_per_hour TEXT NOT NULL,
		invoice_pay TEXT,
		PRIMARY KEY (batch_id, seq)
	);

	-- History (append-only)
	CREATE TABLE IF NOT EXISTS batch_events (
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		kind TEXT NOT NULL,
		detail TEXT,
		status TEXT NOT NULL,
		net_pay TEXT NOT NULL,
		at TEXT NOT NULL,
		PRIMARY KEY (batch_id, version)
	);

	-- Rate tables
	CREATE TABLE IF NOT EXISTS rate_tables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rate_bands (
		table_id TEXT NOT NULL REFERENCES rate_tables(id) ON DELETE CASCADE,
		band INTEGER NOT NULL,
		min_miles TEXT NOT NULL,
		max_miles TEXT NOT NULL,
		band_name TEXT,
		load_type TEXT,
		container_rate TEXT NOT NULL,
		flatbed_rate TEXT NOT NULL,
		PRIMARY KEY (table_id, band)
	);

	-- Tax profiles by jurisdiction code
	CREATE TABLE IF NOT EXISTS tax_profiles (
		code TEXT PRIMARY KEY,
		gst TEXT NOT NULL,
		qst TEXT NOT NULL,
		pst TEXT NOT NULL,
		hst TEXT NOT NULL,
		compound_qst_over_gst BOOLEAN DEFAULT FALSE,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BATCH STORE (payroll.Store interface)
// =============================================================================

// Create inserts a new batch with version 1.
func (s *Store) Create(ctx context.Context, b *payroll.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r := b.Record()
	query := `
		INSERT INTO batches
		(id, batch_number, driver_id, statement_start_date, statement_end_date,
		 waiting_payout_percentage, driver_share_percentage, status, version,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		string(r.Input.ID),
		r.Input.BatchNumber,
		string(r.Input.DriverID),
		formatDate(r.Input.StatementStartDate),
		formatDate(r.Input.StatementEndDate),
		r.Input.WaitingPayoutPercentage.String(),
		r.Input.DriverSharePercentage.String(),
		string(r.Status),
		formatTime(r.Input.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicateBatchNumber
		}
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if err := s.writeEntries(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads a batch and recomputes its totals.
func (s *Store) Get(ctx context.Context, id payroll.BatchID) (*payroll.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getBatch(ctx, s.db, id)
}

// List returns batches matching f, ordered by statement start date then number.
func (s *Store) List(ctx context.Context, f payroll.Filter) ([]*payroll.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id FROM batches WHERE 1 = 1"
	var args []any
	if f.DriverID != "" {
		query += " AND driver_id = ?"
		args = append(args, string(f.DriverID))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY statement_start_date ASC, batch_number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	var ids []payroll.BatchID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, payroll.BatchID(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	batches := make([]*payroll.Batch, 0, len(ids))
	for _, id := range ids {
		b, err := s.getBatch(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Save writes b if its version matches the stored version.
func (s *Store) Save(ctx context.Context, b *payroll.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveBatch(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

// Update executes load -> fn -> save within a database transaction.
func (s *Store) Update(ctx context.Context, id payroll.BatchID, fn func(*payroll.Batch) error) (*payroll.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	b, err := s.getBatch(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.saveBatch(ctx, tx, b); err != nil {
		return nil, err
	}
	updated, err := s.getBatch(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return updated, nil
}

func (s *Store) saveBatch(ctx context.Context, q querier, b *payroll.Batch) error {
	r := b.Record()
	res, err := q.ExecContext(ctx, `
		UPDATE batches
		SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, string(r.Status), formatTime(r.UpdatedAt), string(r.Input.ID), r.Version)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches WHERE id = ?", string(r.Input.ID)).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return payroll.ErrBatchNotFound
		}
		return payroll.ErrConcurrentModification
	}

	// Entries are rewritten in full on every save.
	for _, table := range []string{"batch_loads", "batch_waits", "batch_hourlies"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE batch_id = ?", string(r.Input.ID)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return s.writeEntries(ctx, q, r)
}

func (s *Store) writeEntries(ctx context.Context, q querier, r payroll.Record) error {
	id := string(r.Input.ID)

	for i, l := range r.Loads {
		_, err := q.ExecContext(ctx, `
			INSERT INTO batch_loads
			(batch_id, seq, load_number, reference_number, origin_code, destination_code,
			 date, leg_miles, load_type, rate_type, rate, band_label, fsc_pay,
			 temporary_emergency_fuel_pay)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, i, l.LoadNumber,
			nullString(l.ReferenceNumber), nullString(l.OriginCode), nullString(l.DestinationCode),
			nullDate(l.Date), l.LegMiles.String(), nullString(string(l.LoadType)),
			string(l.RateType), l.Rate.String(), nullString(l.BandLabel),
			l.FSCPay.Value.String(), l.TemporaryEmergencyFuelPay.Value.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert load %s: %w", l.LoadNumber, err)
		}
	}

	for i, w := range r.Waits {
		var multiplier, invoice sql.NullString
		if w.Multiplier != nil {
			multiplier = sql.NullString{String: w.Multiplier.String(), Valid: true}
		}
		if w.InvoicePay != nil {
			invoice = sql.NullString{String: w.InvoicePay.Value.String(), Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO batch_waits
			(batch_id, seq, reference, date, wait_minutes, rate_per_minute, multiplier, invoice_pay)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, i, nullString(w.Reference), nullDate(w.Date), w.WaitMinutes,
			w.RatePerMinute.String(), multiplier, invoice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert wait: %w", err)
		}
	}

	for i, h := range r.Hourlies {
		var invoice sql.NullString
		if h.InvoicePay != nil {
			invoice = sql.NullString{String: h.InvoicePay.Value.String(), Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO batch_hourlies
			(batch_id, seq, date, hours, minutes, rate_per_hour, invoice_pay)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			id, i, nullDate(h.Date), h.Hours, h.Minutes, h.RatePerHour.String(), invoice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert hourly: %w", err)
		}
	}

	return nil
}

func (s *Store) getBatch(ctx context.Context, q querier, id payroll.BatchID) (*payroll.Batch, error) {
	var (
		r                    payroll.Record
		batchID, driverID    string
		start, end           string
		waitingPct, sharePct string
		status               string
		createdAt, updatedAt string
	)

	err := q.QueryRowContext(ctx, `
		SELECT id, batch_number, driver_id, statement_start_date, statement_end_date,
		       waiting_payout_percentage, driver_share_percentage, status, version,
		       created_at, updated_at
		FROM batches WHERE id = ?
	`, string(id)).Scan(
		&batchID, &r.Input.BatchNumber, &driverID, &start, &end,
		&waitingPct, &sharePct, &status, &r.Version, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", id, err)
	}

	r.Input.ID = payroll.BatchID(batchID)
	r.Input.DriverID = payroll.DriverID(driverID)
	r.Input.StatementStartDate = parseDate(start)
	r.Input.StatementEndDate = parseDate(end)
	if r.Input.WaitingPayoutPercentage, err = decimal.NewFromString(waitingPct); err != nil {
		return nil, fmt.Errorf("batch %s: waiting_payout_percentage: %w", id, err)
	}
	if r.Input.DriverSharePercentage, err = decimal.NewFromString(sharePct); err != nil {
		return nil, fmt.Errorf("batch %s: driver_share_percentage: %w", id, err)
	}
	r.Status = payroll.Status(status)
	r.Input.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)

	if r.Loads, err = s.loadLoads(ctx, q, id); err != nil {
		return nil, err
	}
	if r.Waits, err = s.loadWaits(ctx, q, id); err != nil {
		return nil, err
	}
	if r.Hourlies, err = s.loadHourlies(ctx, q, id); err != nil {
		return nil, err
	}

	return payroll.RestoreBatch(r)
}

func (s *Store) loadLoads(ctx context.Context, q querier, id payroll.BatchID) ([]payroll.LoadInput, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT load_number, reference_number, origin_code, destination_code, date,
		       leg_miles, load_type, rate_type, rate, band_label, fsc_pay,
		       temporary_emergency_fuel_pay
		FROM batch_loads WHERE batch_id = ? ORDER BY seq
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	defer rows.Close()

	var loads []payroll.LoadInput
	for rows.Next() {
		var (
			in                      payroll.LoadInput
			ref, origin, dest, date sql.NullString
			loadType, bandLabel     sql.NullString
			miles, rateType, rate   string
			fsc, tempFuel           string
		)
		if err := rows.Scan(
			&in.LoadNumber, &ref, &origin, &dest, &date,
			&miles, &loadType, &rateType, &rate, &bandLabel, &fsc, &tempFuel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}

		in.ReferenceNumber = ref.String
		in.OriginCode = origin.String
		in.DestinationCode = dest.String
		in.Date = parseDate(date.String)
		in.LoadType = payroll.LoadType(loadType.String)
		in.RateType = payroll.RateType(rateType)
		in.BandLabel = bandLabel.String
		if in.LegMiles, err = decimal.NewFromString(miles); err != nil {
			return nil, fmt.Errorf("load %s: leg_miles: %w", in.LoadNumber, err)
		}
		if in.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("load %s: rate: %w", in.LoadNumber, err)
		}
		if in.FSCPay, err = money.Parse(fsc); err != nil {
			return nil, fmt.Errorf("load %s: fsc_pay: %w", in.LoadNumber, err)
		}
		if in.TemporaryEmergencyFuelPay, err = money.Parse(tempFuel); err != nil {
			return nil, fmt.Errorf("load %s: temporary_emergency_fuel_pay: %w", in.LoadNumber, err)
		}
		loads = append(loads, in)
	}

	return loads, rows.Err()
}

func (s *Store) loadWaits(ctx context.Context, q querier, id payroll.BatchID) ([]payroll.WaitInput, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT reference, date, wait_minutes, rate_per_minute, multiplier, invoice_pay
		FROM batch_waits WHERE batch_id = ? ORDER BY seq
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query waits: %w", err)
	}
	defer rows.Close()

	var waits []payroll.WaitInput
	for rows.Next() {
		var (
			in                  payroll.WaitInput
			ref, date           sql.NullString
			rate                string
			multiplier, invoice sql.NullString
		)
		if err := rows.Scan(&ref, &date, &in.WaitMinutes, &rate, &multiplier, &invoice); err != nil {
			return nil, fmt.Errorf("failed to scan wait: %w", err)
		}

		in.Reference = ref.String
		in.Date = parseDate(date.String)
		if in.RatePerMinute, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("wait: rate_per_minute: %w", err)
		}
		if multiplier.Valid {
			m, err := decimal.NewFromString(multiplier.String)
			if err != nil {
				return nil, fmt.Errorf("wait: multiplier: %w", err)
			}
			in.Multiplier = &m
		}
		if in.InvoicePay, err = parseOptionalAmount(invoice); err != nil {
			return nil, fmt.Errorf("wait: invoice_pay: %w", err)
		}
		waits = append(waits, in)
	}

	return waits, rows.Err()
}

func (s *Store) loadHourlies(ctx context.Context, q querier, id payroll.BatchID) ([]payroll.HourlyInput, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT date, hours, minutes, rate_per_hour, invoice_pay
		FROM batch_hourlies WHERE batch_id = ? ORDER BY seq
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly entries: %w", err)
	}
	defer rows.Close()

	var hourlies []payroll.HourlyInput
	for rows.Next() {
		var (
			in            payroll.HourlyInput
			date, invoice sql.NullString
			rate          string
		)
		if err := rows.Scan(&date, &in.Hours, &in.Minutes, &rate, &invoice); err != nil {
			return nil, fmt.Errorf("failed to scan hourly: %w", err)
		}

		in.Date = parseDate(date.String)
		if in.RatePerHour, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("hourly: rate_per_hour: %w", err)
		}
		if in.InvoicePay, err = parseOptionalAmount(invoice); err != nil {
			return nil, fmt.Errorf("hourly: invoice_pay: %w", err)
		}
		hourlies = append(hourlies, in)
	}

	return hourlies, rows.Err()
}

// =============================================================================
// RATE TABLE STORE (payroll.RateTableStore interface)
// =============================================================================

// SaveRateTable inserts or replaces a rate table and all of its bands.
func (s *Store) SaveRateTable(ctx context.Context, t payroll.RateTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rate_tables (id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, t.ID, t.Name, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save rate table %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM rate_bands WHERE table_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to clear bands of %s: %w", t.ID, err)
	}
	for _, b := range t.Bands {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rate_bands
			(table_id, band, min_miles, max_miles, band_name, load_type, container_rate, flatbed_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID, b.Band, b.MinMiles.String(), b.MaxMiles.String(),
			nullString(b.BandName), nullString(string(b.LoadType)),
			b.ContainerRate.String(), b.FlatbedRate.String(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("rate table %s: duplicate band %d: %w", t.ID, b.Band, payroll.ErrInvalidArgument)
			}
			return fmt.Errorf("failed to insert band %d: %w", b.Band, err)
		}
	}

	return tx.Commit()
}

// GetRateTable retrieves a rate table by ID.
func (s *Store) GetRateTable(ctx context.Context, id string) (payroll.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := payroll.RateTable{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name FROM rate_tables WHERE id = ?", id).Scan(&t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.RateTable{}, payroll.ErrRateTableNotFound
	}
	if err != nil {
		return payroll.RateTable{}, err
	}

	if t.Bands, err = s.loadBands(ctx, id); err != nil {
		return payroll.RateTable{}, err
	}
	return t, nil
}

// ListRateTables returns all rate tables ordered by ID.
func (s *Store) ListRateTables(ctx context.Context) ([]payroll.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM rate_tables ORDER BY id")
	if err != nil {
		return nil, err
	}
	var tables []payroll.RateTable
	for rows.Next() {
		var t payroll.RateTable
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			rows.Close()
			return nil, err
		}
		tables = append(tables, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		if tables[i].Bands, err = s.loadBands(ctx, tables[i].ID); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (s *Store) loadBands(ctx context.Context, tableID string) ([]payroll.RateBand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT band, min_miles, max_miles, band_name, load_type, container_rate, flatbed_rate
		FROM rate_bands WHERE table_id = ? ORDER BY band
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	var bands []payroll.RateBand
	for rows.Next() {
		var (
			b                  payroll.RateBand
			minMiles, maxMiles string
			name, loadType     sql.NullString
			container, flatbed string
		)
		if err := rows.Scan(&b.Band, &minMiles, &maxMiles, &name, &loadType, &container, &flatbed); err != nil {
			return nil, fmt.Errorf("failed to scan band: %w", err)
		}
		b.BandName = name.String
		b.LoadType = payroll.LoadType(loadType.String)
		if err := parseDecimals(
			decimalColumn{"min_miles", minMiles, &b.MinMiles},
			decimalColumn{"max_miles", maxMiles, &b.MaxMiles},
			decimalColumn{"container_rate", container, &b.ContainerRate},
			decimalColumn{"flatbed_rate", flatbed, &b.FlatbedRate},
		); err != nil {
			return nil, fmt.Errorf("rate table %s band %d: %w", tableID, b.Band, err)
		}
		bands = append(bands, b)
	}

	return bands, rows.Err()
}

// =============================================================================
// TAX PROFILES
// =============================================================================

// SaveTaxProfile stores the rates of p under the jurisdiction code.
func (s *Store) SaveTaxProfile(ctx context.Context, code string, p *tax.Profile) error {
	if p == nil {
		return tax.ErrProfileRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := p.Rates()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_profiles (code, gst, qst, pst, hst, compound_qst_over_gst, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			gst = excluded.gst,
			qst = excluded.qst,
			pst = excluded.pst,
			hst = excluded.hst,
			compound_qst_over_gst = excluded.compound_qst_over_gst,
			updated_at = excluded.updated_at
	`,
		strings.ToUpper(code), r.GST.String(), r.QST.String(), r.PST.String(), r.HST.String(),
		r.CompoundQSTOverGST, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save tax profile %s: %w", code, err)
	}
	return nil
}

// ListTaxProfiles returns every stored profile keyed by jurisdiction code.
// Rows whose rates no longer validate are returned as an error.
func (s *Store) ListTaxProfiles(ctx context.Context) (map[string]*tax.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, gst, qst, pst, hst, compound_qst_over_gst FROM tax_profiles ORDER BY code",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make(map[string]*tax.Profile)
	for rows.Next() {
		var (
			code               string
			gst, qst, pst, hst string
			r                  tax.Rates
		)
		if err := rows.Scan(&code, &gst, &qst, &pst, &hst, &r.CompoundQSTOverGST); err != nil {
			return nil, err
		}
		if err := parseDecimals(
			decimalColumn{"gst", gst, &r.GST},
			decimalColumn{"qst", qst, &r.QST},
			decimalColumn{"pst", pst, &r.PST},
			decimalColumn{"hst", hst, &r.HST},
		); err != nil {
			return nil, fmt.Errorf("tax profile %s: %w", code, err)
		}

		p, err := tax.NewProfile(code, r)
		if err != nil {
			return nil, fmt.Errorf("tax profile %s: %w", code, err)
		}
		profiles[code] = p
	}

	return profiles, rows.Err()
}

// =============================================================================
// HISTORY (payroll.History interface)
// =============================================================================

// AppendEvent inserts an event. The (batch_id, version) key makes a second
// append for the same version fail.
func (s *Store) AppendEvent(ctx context.Context, e payroll.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_events (batch_id, version, kind, detail, status, net_pay, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.BatchID), e.Version, string(e.Kind), nullString(e.Detail),
		string(e.Status), e.NetPay.String(), formatTime(e.At),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("batch %s version %d: %w", e.BatchID, e.Version, payroll.ErrDuplicateEvent)
	}
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Events returns a batch's history in version order.
func (s *Store) Events(ctx context.Context, id payroll.BatchID) ([]payroll.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT version, kind, detail, status, net_pay, at
		FROM batch_events WHERE batch_id = ? ORDER BY version
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []payroll.Event{}
	for rows.Next() {
		var (
			e            payroll.Event
			kind, status string
			netPay, at   string
			detail       sql.NullString
		)
		if err := rows.Scan(&e.Version, &kind, &detail, &status, &netPay, &at); err != nil {
			return nil, err
		}
		if e.NetPay, err = money.Parse(netPay); err != nil {
			return nil, fmt.Errorf("event %s/%d: %w", id, e.Version, err)
		}
		e.BatchID = id
		e.Kind = payroll.EventKind(kind)
		e.Detail = detail.String
		e.Status = payroll.Status(status)
		e.At = parseTime(at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// Reset clears batches, their history and rate tables (for demo/testing
// purposes). Tax profiles are kept: they mirror the in-process tax registry,
// which is only populated at startup.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"batch_events", "batch_loads", "batch_waits", "batch_hourlies", "batches", "rate_bands", "rate_tables"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(t), Valid: true}
}

func formatDate(t time.Time) string { return t.UTC().Format(payroll.DateLayout) }
func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(payroll.DateLayout, s)
	return t
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

type decimalColumn struct {
	name string
	raw  string
	dst  *decimal.Decimal
}

// parseDecimals parses TEXT columns into their targets and names the first
// column that does not hold a decimal.
func parseDecimals(cols ...decimalColumn) error {
	for _, c := range cols {
		d, err := decimal.NewFromString(c.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = d
	}
	return nil
}

func parseOptionalAmount(v sql.NullString) (*money.Amount, error) {
	if !v.Valid {
		return nil, nil
	}
	a, err := money.Parse(v.String)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
