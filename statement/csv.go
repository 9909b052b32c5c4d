// Package statement exports a batch as a driver pay statement.
//
// The CSV has one row per entry in insertion order (loads, then waits, then
// hourly work) followed by the summary rows of the batch totals. All money
// is written with two decimals.
package statement

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/payroll"
)

// Row kinds.
const (
	KindLoad   = "load"
	KindWait   = "wait"
	KindHourly = "hourly"
	KindTotal  = "total"
)

// Summary row labels, in output order.
const (
	TotalTrip        = "trip_total"
	TotalWaitingRaw  = "waiting_raw_total"
	TotalWaiting     = "waiting_total"
	TotalHourly      = "hourly_total"
	TotalGross       = "gross_revenue"
	TotalDriverShare = "driver_share_amount"
	TotalGST         = "gst"
	TotalQST         = "qst"
	TotalNetPay      = "net_pay"
)

// Row is one CSV line. Quantity is miles for loads, minutes for waits and
// decimal hours for hourly work.
type Row struct {
	Kind        string `csv:"kind"`
	Reference   string `csv:"reference"`
	Date        string `csv:"date"`
	Quantity    string `csv:"quantity"`
	Unit        string `csv:"unit"`
	Rate        string `csv:"rate"`
	Amount      string `csv:"amount"`
	FinalAmount string `csv:"final_amount"`
}

// Rows flattens b into statement rows.
func Rows(b *payroll.Batch) []Row {
	var rows []Row

	for _, l := range b.Loads() {
		unit := "mi"
		if l.RateType() == payroll.RateFlat {
			unit = "flat"
		}
		rows = append(rows, Row{
			Kind:        KindLoad,
			Reference:   l.LoadNumber(),
			Date:        dateString(l.Date()),
			Quantity:    l.LegMiles().String(),
			Unit:        unit,
			Rate:        l.Rate().String(),
			Amount:      l.BasePay().String(),
			FinalAmount: l.NetPay().String(),
		})
	}

	for _, w := range b.Waits() {
		rows = append(rows, Row{
			Kind:        KindWait,
			Reference:   w.Reference(),
			Date:        dateString(w.Date()),
			Quantity:    fmt.Sprint(w.WaitMinutes()),
			Unit:        "min",
			Rate:        w.RatePerMinute().String(),
			Amount:      w.RawPay().String(),
			FinalAmount: w.FinalPay().String(),
		})
	}

	for _, h := range b.Hourlies() {
		rows = append(rows, Row{
			Kind:        KindHourly,
			Date:        dateString(h.Date()),
			Quantity:    h.Input().Duration().StringFixed(2),
			Unit:        "h",
			Rate:        h.RatePerHour().String(),
			Amount:      h.TotalPay().String(),
			FinalAmount: h.TotalPay().String(),
		})
	}

	tot := b.Totals()
	for _, s := range []struct {
		label  string
		amount money.Amount
	}{
		{TotalTrip, tot.TripTotal},
		{TotalWaitingRaw, tot.WaitingRawTotal},
		{TotalWaiting, tot.WaitingTotal},
		{TotalHourly, tot.HourlyTotal},
		{TotalGross, tot.GrossRevenue},
		{TotalDriverShare, tot.DriverShareAmount},
		{TotalGST, tot.Taxes.GST},
		{TotalQST, tot.Taxes.QST},
		{TotalNetPay, tot.NetPay},
	} {
		rows = append(rows, Row{Kind: KindTotal, Reference: s.label, Amount: s.amount.String()})
	}

	return rows
}

// WriteCSV writes the statement of b to w with a header line.
func WriteCSV(w io.Writer, b *payroll.Batch) error {
	if err := gocsv.Marshal(Rows(b), w); err != nil {
		return fmt.Errorf("failed to write statement %s: %w", b.BatchNumber(), err)
	}
	return nil
}

// ReadCSV parses a statement written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}
	return rows, nil
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(payroll.DateLayout)
}
