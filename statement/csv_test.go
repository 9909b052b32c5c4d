package statement_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/statement"
)

func workedExample(t *testing.T) *payroll.Batch {
	t.Helper()
	b, err := payroll.NewBatch(payroll.BatchInput{
		BatchNumber:             "B-2025-10",
		DriverID:                "drv-42",
		StatementStartDate:      payroll.Date(2025, 3, 1),
		StatementEndDate:        payroll.Date(2025, 3, 15),
		WaitingPayoutPercentage: decimal.RequireFromString("0.5"),
		DriverSharePercentage:   decimal.RequireFromString("0.40"),
	})
	require.NoError(t, err)

	_, err = b.AddLoad(payroll.LoadInput{
		LoadNumber: "L-1",
		Date:       payroll.Date(2025, 3, 3),
		LegMiles:   decimal.NewFromInt(100),
		Rate:       decimal.RequireFromString("0.65"),
	})
	require.NoError(t, err)
	_, err = b.AddWait(payroll.WaitInput{Reference: "W-1", WaitMinutes: 30, RatePerMinute: decimal.NewFromInt(1)})
	require.NoError(t, err)
	return b
}

func TestRows(t *testing.T) {
	rows := statement.Rows(workedExample(t))

	// 1 load + 1 wait + 9 summary rows
	require.Len(t, rows, 11)

	assert.Equal(t, statement.Row{
		Kind:        statement.KindLoad,
		Reference:   "L-1",
		Date:        "2025-03-03",
		Quantity:    "100",
		Unit:        "mi",
		Rate:        "0.65",
		Amount:      "65.00",
		FinalAmount: "65.00",
	}, rows[0])

	assert.Equal(t, statement.KindWait, rows[1].Kind)
	assert.Equal(t, "30", rows[1].Quantity)
	assert.Equal(t, "30.00", rows[1].Amount)
	assert.Empty(t, rows[1].Date)

	totals := map[string]string{}
	for _, r := range rows[2:] {
		assert.Equal(t, statement.KindTotal, r.Kind)
		totals[r.Reference] = r.Amount
	}
	assert.Equal(t, "15.00", totals[statement.TotalWaiting])
	assert.Equal(t, "80.00", totals[statement.TotalGross])
	assert.Equal(t, "32.00", totals[statement.TotalDriverShare])
	assert.Equal(t, "1.60", totals[statement.TotalGST])
	assert.Equal(t, "3.19", totals[statement.TotalQST])
	assert.Equal(t, "36.79", totals[statement.TotalNetPay])
	assert.Equal(t, statement.TotalNetPay, rows[len(rows)-1].Reference)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, statement.WriteCSV(&buf, workedExample(t)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "kind,reference,date,quantity,unit,rate,amount,final_amount", lines[0])
	assert.Equal(t, "load,L-1,2025-03-03,100,mi,0.65,65.00,65.00", lines[1])
	assert.Equal(t, "total,net_pay,,,,,36.79,", lines[11])

	rows, err := statement.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, statement.Rows(workedExample(t)), rows)
}

func TestWriteCSV_EmptyBatch(t *testing.T) {
	b, err := payroll.NewBatch(payroll.BatchInput{
		BatchNumber:        "B-empty",
		DriverID:           "drv",
		StatementStartDate: payroll.Date(2025, 3, 1),
		StatementEndDate:   payroll.Date(2025, 3, 1),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, statement.WriteCSV(&buf, b))

	rows, err := statement.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 9)
	for _, r := range rows {
		assert.Equal(t, "0.00", r.Amount)
	}
}
