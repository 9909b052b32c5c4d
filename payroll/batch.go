/*
batch.go - Driver statement aggregate

PURPOSE:
  A Batch is one driver's pay statement for a period. It owns the Load, Wait
  and Hourly entries and derives every total from them.

RECALCULATION:
  Every append runs RecalculateTotals, which rebuilds all totals from the
  entries. Each step is rounded to 2 places (half away from zero) BEFORE it
  feeds the next one:

    1. tripTotal         = round2(Σ load.netPay)
    2. waitingRawTotal   = round2(Σ wait.rawPay)
    3. waitingTotal      = round2(waitingRawTotal * waitingPayoutPercentage)
    4. hourlyTotal       = round2(Σ hourly.totalPay)
    5. grossRevenue      = round2(tripTotal + waitingTotal + hourlyTotal)
    6. driverShareAmount = round2(grossRevenue * driverSharePercentage)
    7. taxes             = GST 5% + QST 9.975% on driverShareAmount (no compounding)
    8. netPay            = driverShareAmount + taxes.Total

  Rounding only the final figure does NOT reproduce these totals.
  TotalPay is the same value as NetPay.

WORKED EXAMPLE:
  load 100 mi @ 0.65/mi          -> tripTotal 65.00
  wait 30 min @ 1.00/min, 50%    -> waitingRaw 30.00, waiting 15.00
  gross 80.00, share 40%         -> driverShare 32.00
  gst 1.60, qst 3.19             -> netPay 36.79

TAXES:
  Step 7 uses tax.CalculateTwoTax with the fixed default rates, not a
  tax.Profile. TaxesUnder(profile) shows the profile-driven breakdown of the
  same driver share without changing NetPay.

SEE ALSO:
  - load.go, wait.go, hourly.go: Entry pricing
  - tax/amounts.go: Tax calculation
*/
package payroll

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/tax"
)

// =============================================================================
// BATCH INPUT / TOTALS
// =============================================================================

// BatchInput holds the construction fields of a batch.
type BatchInput struct {
	ID          BatchID // generated when empty
	BatchNumber string
	DriverID    DriverID

	StatementStartDate time.Time
	StatementEndDate   time.Time

	WaitingPayoutPercentage decimal.Decimal // fraction, e.g. 0.5
	DriverSharePercentage   decimal.Decimal // fraction, e.g. 0.40

	CreatedAt time.Time // defaults to now
}

// Totals are the derived figures of a batch.
type Totals struct {
	TripTotal         money.Amount
	WaitingRawTotal   money.Amount
	WaitingTotal      money.Amount
	HourlyTotal       money.Amount
	GrossRevenue      money.Amount
	DriverShareAmount money.Amount
	Taxes             tax.Amounts
	NetPay            money.Amount
}

// TotalPay is NetPay under another name.
func (t Totals) TotalPay() money.Amount { return t.NetPay }

// =============================================================================
// BATCH - Aggregate root
// =============================================================================

// Batch is a driver statement. It is not safe for concurrent mutation.
type Batch struct {
	in     BatchInput
	period Period
	status Status

	loads    []Load
	waits    []Wait
	hourlies []Hourly

	totals    Totals
	version   int
	updatedAt time.Time
}

// NewBatch validates in and returns an empty Draft batch with zeroed totals.
func NewBatch(in BatchInput) (*Batch, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.BatchNumber == "" {
		return nil, invalid("batch_number", "is required")
	}
	if strings.TrimSpace(string(in.DriverID)) == "" {
		return nil, invalid("driver_id", "is required")
	}
	period, err := NewPeriod(in.StatementStartDate, in.StatementEndDate)
	if err != nil {
		return nil, err
	}
	if in.WaitingPayoutPercentage.IsNegative() {
		return nil, invalid("waiting_payout_percentage", "must not be negative, got %s", in.WaitingPayoutPercentage)
	}
	if in.DriverSharePercentage.IsNegative() {
		return nil, invalid("driver_share_percentage", "must not be negative, got %s", in.DriverSharePercentage)
	}

	if in.ID == "" {
		in.ID = BatchID(uuid.NewString())
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	in.StatementStartDate = period.Start
	in.StatementEndDate = period.End

	b := &Batch{
		in:        in,
		period:    period,
		status:    StatusDraft,
		updatedAt: in.CreatedAt,
	}
	b.RecalculateTotals()
	return b, nil
}

// =============================================================================
// MUTATIONS (Draft only)
// =============================================================================

// AddLoad prices a load and appends it. Fails with *StateError when the batch
// is not Draft, or *ValidationError for bad input; the batch is unchanged on
// any error.
func (b *Batch) AddLoad(in LoadInput) (Load, error) {
	if err := b.ensureMutable(); err != nil {
		return Load{}, err
	}
	l, err := NewLoad(in)
	if err != nil {
		return Load{}, err
	}
	b.loads = append(b.loads, l)
	b.touch()
	return l, nil
}

// AddWait prices a wait and appends it.
func (b *Batch) AddWait(in WaitInput) (Wait, error) {
	if err := b.ensureMutable(); err != nil {
		return Wait{}, err
	}
	w, err := NewWait(in)
	if err != nil {
		return Wait{}, err
	}
	b.waits = append(b.waits, w)
	b.touch()
	return w, nil
}

// AddHourly prices an hourly entry and appends it.
func (b *Batch) AddHourly(in HourlyInput) (Hourly, error) {
	if err := b.ensureMutable(); err != nil {
		return Hourly{}, err
	}
	h, err := NewHourly(in)
	if err != nil {
		return Hourly{}, err
	}
	b.hourlies = append(b.hourlies, h)
	b.touch()
	return h, nil
}

// SetStatus records a new status. Any known status is accepted; freezing is
// enforced by the Add* guards, not here.
func (b *Batch) SetStatus(s Status) error {
	if !s.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(s)}
	}
	b.status = s
	b.updatedAt = time.Now().UTC()
	return nil
}

func (b *Batch) ensureMutable() error {
	if !b.status.IsMutable() {
		return &StateError{BatchNumber: b.in.BatchNumber, Status: b.status}
	}
	return nil
}

func (b *Batch) touch() {
	b.updatedAt = time.Now().UTC()
	b.RecalculateTotals()
}

// =============================================================================
// RECALCULATION
// =============================================================================

// RecalculateTotals rebuilds every total from the entries. It has no effect
// beyond the totals and is safe to call repeatedly.
func (b *Batch) RecalculateTotals() {
	trip := money.Zero
	for _, l := range b.loads {
		trip = trip.Add(l.NetPay())
	}
	trip = trip.Round2()

	waitingRaw := money.Zero
	for _, w := range b.waits {
		waitingRaw = waitingRaw.Add(w.RawPay())
	}
	waitingRaw = waitingRaw.Round2()
	waiting := waitingRaw.Mul(b.in.WaitingPayoutPercentage).Round2()

	hourly := money.Zero
	for _, h := range b.hourlies {
		hourly = hourly.Add(h.TotalPay())
	}
	hourly = hourly.Round2()

	gross := money.Sum(trip, waiting, hourly).Round2()
	share := gross.Mul(b.in.DriverSharePercentage).Round2()
	taxes := tax.CalculateTwoTax(share, tax.DefaultGSTRate, tax.DefaultQSTRate)

	b.totals = Totals{
		TripTotal:         trip,
		WaitingRawTotal:   waitingRaw,
		WaitingTotal:      waiting,
		HourlyTotal:       hourly,
		GrossRevenue:      gross,
		DriverShareAmount: share,
		Taxes:             taxes,
		NetPay:            share.Add(taxes.Total()),
	}
}

// TaxesUnder computes the tax on the driver share using profile. It is a
// view only; NetPay keeps the default two-tax figures.
func (b *Batch) TaxesUnder(profile *tax.Profile) (tax.Amounts, error) {
	return tax.Calculate(b.totals.DriverShareAmount, profile, money.Places)
}

// =============================================================================
// READ ACCESS
// =============================================================================

func (b *Batch) ID() BatchID                              { return b.in.ID }
func (b *Batch) BatchNumber() string                      { return b.in.BatchNumber }
func (b *Batch) DriverID() DriverID                       { return b.in.DriverID }
func (b *Batch) Period() Period                           { return b.period }
func (b *Batch) StatementStartDate() time.Time            { return b.period.Start }
func (b *Batch) StatementEndDate() time.Time              { return b.period.End }
func (b *Batch) WaitingPayoutPercentage() decimal.Decimal { return b.in.WaitingPayoutPercentage }
func (b *Batch) DriverSharePercentage() decimal.Decimal   { return b.in.DriverSharePercentage }
func (b *Batch) Status() Status                           { return b.status }
func (b *Batch) IsMutable() bool                          { return b.status.IsMutable() }
func (b *Batch) Totals() Totals                           { return b.totals }
func (b *Batch) NetPay() money.Amount                     { return b.totals.NetPay }
func (b *Batch) TotalPay() money.Amount                   { return b.totals.NetPay }
func (b *Batch) CreatedAt() time.Time                     { return b.in.CreatedAt }
func (b *Batch) UpdatedAt() time.Time                     { return b.updatedAt }
func (b *Batch) Version() int                             { return b.version }

// Loads returns a copy of the load entries.
func (b *Batch) Loads() []Load { return slices.Clone(b.loads) }

// Waits returns a copy of the wait entries.
func (b *Batch) Waits() []Wait { return slices.Clone(b.waits) }

// Hourlies returns a copy of the hourly entries.
func (b *Batch) Hourlies() []Hourly { return slices.Clone(b.hourlies) }

// =============================================================================
// RECORD - Persistence form
// =============================================================================

// Record is what stores persist: the construction inputs, entry inputs and
// status. Totals are never stored; RestoreBatch recomputes them.
type Record struct {
	Input     BatchInput
	Status    Status
	Loads     []LoadInput
	Waits     []WaitInput
	Hourlies  []HourlyInput
	Version   int
	UpdatedAt time.Time
}

// Record captures the batch for persistence.
func (b *Batch) Record() Record {
	r := Record{
		Input:     b.in,
		Status:    b.status,
		Loads:     make([]LoadInput, len(b.loads)),
		Waits:     make([]WaitInput, len(b.waits)),
		Hourlies:  make([]HourlyInput, len(b.hourlies)),
		Version:   b.version,
		UpdatedAt: b.updatedAt,
	}
	for i, l := range b.loads {
		r.Loads[i] = l.Input()
	}
	for i, w := range b.waits {
		r.Waits[i] = w.Input()
	}
	for i, h := range b.hourlies {
		r.Hourlies[i] = h.Input()
	}
	return r
}

// RestoreBatch rebuilds a batch from a record through the same constructors
// used for new entries, then applies the stored status and version.
func RestoreBatch(r Record) (*Batch, error) {
	b, err := NewBatch(r.Input)
	if err != nil {
		return nil, err
	}
	for _, in := range r.Loads {
		l, err := NewLoad(in)
		if err != nil {
			return nil, err
		}
		b.loads = append(b.loads, l)
	}
	for _, in := range r.Waits {
		w, err := NewWait(in)
		if err != nil {
			return nil, err
		}
		b.waits = append(b.waits, w)
	}
	for _, in := range r.Hourlies {
		h, err := NewHourly(in)
		if err != nil {
			return nil, err
		}
		b.hourlies = append(b.hourlies, h)
	}
	if r.Status != "" {
		if !r.Status.Valid() {
			return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(r.Status)}
		}
		b.status = r.Status
	}
	b.version = r.Version
	if !r.UpdatedAt.IsZero() {
		b.updatedAt = r.UpdatedAt
	}
	b.RecalculateTotals()
	return b, nil
}
