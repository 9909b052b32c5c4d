package payroll

import "time"

// =============================================================================
// PERIOD - Statement date range
// =============================================================================

// Period is the inclusive date range a statement covers. Both ends are
// calendar dates; the time of day is dropped.
type Period struct {
	Start time.Time
	End   time.Time
}

// Date returns midnight UTC for the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// NewPeriod validates that start <= end.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: DateOf(start), End: DateOf(end)}
	if p.Start.IsZero() {
		return Period{}, invalid("statement_start_date", "is required")
	}
	if p.End.IsZero() {
		return Period{}, invalid("statement_end_date", "is required")
	}
	if p.End.Before(p.Start) {
		return Period{}, invalid("statement_end_date", "%s is before start %s", p.End.Format(DateLayout), p.Start.Format(DateLayout))
	}
	return p, nil
}

// DateLayout is the wire format for statement dates.
const DateLayout = "2006-01-02"

// Contains returns true if t falls on a day within [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of calendar days covered, inclusive.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

func (p Period) String() string {
	return "[" + p.Start.Format(DateLayout) + ", " + p.End.Format(DateLayout) + "]"
}
