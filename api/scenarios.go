/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	statements for demos. Each scenario saves the standard rate table and
	builds one or more batches through payroll.Service, the same path the
	API uses.

AVAILABLE SCENARIOS:

	worked-example:     One load and one wait, net pay 36.79
	rate-table-week:    A week of loads across every band, waits and hourly work
	approved-statement: A frozen approved batch and a paid batch

HOW SCENARIOS WORK:
 1. Reset database (clear batches and rate tables, purge the rate cache)
 2. Save the standard rate table via factory
 3. Create batches
 4. Add entries
 5. Optionally move batches out of draft

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "worked-example"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase
  - factory/config.go: DefaultRateTableJSON
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/driver-payroll/factory"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "worked-example",
		Name:        "Worked Example",
		Description: "100 mi container load at 0.65/mi and a 30 min wait at 50% payout, 40% driver share",
	},
	{
		ID:          "rate-table-week",
		Name:        "Rate Table Week",
		Description: "Short, long, flat and unmatched loads priced from the standard table, plus waits and hourly work",
	},
	{
		ID:          "approved-statement",
		Name:        "Approved Statement",
		Description: "One approved and one paid batch; both reject new entries",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "worked-example":
		load = h.loadWorkedExampleScenario
	case "rate-table-week":
		load = h.loadRateTableWeekScenario
	case "approved-statement":
		load = h.loadApprovedStatementScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		h.fail(w, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWorkedExampleScenario(ctx context.Context) error {
	if err := h.saveStandardTable(ctx); err != nil {
		return err
	}

	b, err := h.Service.CreateBatch(ctx, payroll.BatchInput{
		ID:                      "batch-demo-001",
		BatchNumber:             "B-DEMO-001",
		DriverID:                "drv-tremblay",
		StatementStartDate:      payroll.Date(2025, 3, 1),
		StatementEndDate:        payroll.Date(2025, 3, 15),
		WaitingPayoutPercentage: decimal.RequireFromString("0.5"),
		DriverSharePercentage:   decimal.RequireFromString("0.40"),
	})
	if err != nil {
		return err
	}

	if _, err := h.Service.AddLoadFromTable(ctx, b.ID(), factory.DefaultRateTableID, payroll.LoadInput{
		LoadNumber:      "L-1001",
		OriginCode:      "MTL",
		DestinationCode: "COR",
		Date:            payroll.Date(2025, 3, 3),
		LegMiles:        decimal.NewFromInt(100),
		LoadType:        payroll.LoadContainer,
	}); err != nil {
		return err
	}
	_, err = h.Service.AddWait(ctx, b.ID(), payroll.WaitInput{
		Reference:     "L-1001",
		Date:          payroll.Date(2025, 3, 3),
		WaitMinutes:   30,
		RatePerMinute: decimal.RequireFromString("1.00"),
	})
	return err
}

func (h *Handler) loadRateTableWeekScenario(ctx context.Context) error {
	if err := h.saveStandardTable(ctx); err != nil {
		return err
	}

	b, err := h.Service.CreateBatch(ctx, payroll.BatchInput{
		ID:                      "batch-week-011",
		BatchNumber:             "B-2025-011",
		DriverID:                "drv-gagnon",
		StatementStartDate:      payroll.Date(2025, 3, 10),
		StatementEndDate:        payroll.Date(2025, 3, 16),
		WaitingPayoutPercentage: decimal.RequireFromString("0.75"),
		DriverSharePercentage:   decimal.RequireFromString("0.35"),
	})
	if err != nil {
		return err
	}

	loads := []payroll.LoadInput{
		{LoadNumber: "L-2001", Date: payroll.Date(2025, 3, 10), LegMiles: decimal.RequireFromString("87.5"), LoadType: payroll.LoadContainer,
			FSCPay: money.MustParse("12.40")},
		{LoadNumber: "L-2002", Date: payroll.Date(2025, 3, 11), LegMiles: decimal.NewFromInt(312), LoadType: payroll.LoadFlatbed,
			FSCPay: money.MustParse("31.20"), TemporaryEmergencyFuelPay: money.MustParse("8.00")},
		{LoadNumber: "L-2003", Date: payroll.Date(2025, 3, 12), LegMiles: decimal.NewFromInt(640), LoadType: payroll.LoadContainer},
		// Beyond the last band: priced at zero, fuel pay still counts.
		{LoadNumber: "L-2004", Date: payroll.Date(2025, 3, 13), LegMiles: decimal.NewFromInt(3400), LoadType: payroll.LoadFlatbed,
			FSCPay: money.MustParse("95.00")},
	}
	for _, in := range loads {
		if _, err := h.Service.AddLoadFromTable(ctx, b.ID(), factory.DefaultRateTableID, in); err != nil {
			return err
		}
	}

	doubleTime := decimal.NewFromInt(2)
	billed := money.MustParse("40.00")
	waits := []payroll.WaitInput{
		{Reference: "L-2001", Date: payroll.Date(2025, 3, 10), WaitMinutes: 45, RatePerMinute: decimal.RequireFromString("0.75")},
		{Reference: "L-2002", Date: payroll.Date(2025, 3, 11), WaitMinutes: 20, RatePerMinute: decimal.RequireFromString("0.75"), Multiplier: &doubleTime},
		{Reference: "L-2003", Date: payroll.Date(2025, 3, 12), WaitMinutes: 90, RatePerMinute: decimal.RequireFromString("0.50"), InvoicePay: &billed},
	}
	for _, in := range waits {
		if _, err := h.Service.AddWait(ctx, b.ID(), in); err != nil {
			return err
		}
	}

	_, err = h.Service.AddHourly(ctx, b.ID(), payroll.HourlyInput{
		Date:        payroll.Date(2025, 3, 14),
		Hours:       3,
		Minutes:     45,
		RatePerHour: decimal.RequireFromString("28.50"),
	})
	return err
}

func (h *Handler) loadApprovedStatementScenario(ctx context.Context) error {
	if err := h.saveStandardTable(ctx); err != nil {
		return err
	}

	batches := []struct {
		id, number string
		start      int
		status     payroll.Status
	}{
		{"batch-approved-021", "B-2025-021", 1, payroll.StatusApproved},
		{"batch-paid-020", "B-2025-020", 16, payroll.StatusPaid},
	}
	for _, sc := range batches {
		b, err := h.Service.CreateBatch(ctx, payroll.BatchInput{
			ID:                      payroll.BatchID(sc.id),
			BatchNumber:             sc.number,
			DriverID:                "drv-roy",
			StatementStartDate:      payroll.Date(2025, 4, sc.start),
			StatementEndDate:        payroll.Date(2025, 4, sc.start+13),
			WaitingPayoutPercentage: decimal.RequireFromString("0.5"),
			DriverSharePercentage:   decimal.RequireFromString("0.40"),
		})
		if err != nil {
			return err
		}
		if _, err := h.Service.AddLoadFromTable(ctx, b.ID(), factory.DefaultRateTableID, payroll.LoadInput{
			LoadNumber: sc.number + "-L1",
			Date:       payroll.Date(2025, 4, sc.start+2),
			LegMiles:   decimal.NewFromInt(220),
			LoadType:   payroll.LoadContainer,
			FSCPay:     money.MustParse("18.75"),
		}); err != nil {
			return err
		}
		if _, err := h.Service.AddHourly(ctx, b.ID(), payroll.HourlyInput{
			Date:        payroll.Date(2025, 4, sc.start+3),
			Hours:       2,
			RatePerHour: decimal.RequireFromString("27.00"),
		}); err != nil {
			return err
		}
		if _, err := h.Service.SetStatus(ctx, b.ID(), sc.status); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) saveStandardTable(ctx context.Context) error {
	table, err := h.Factory.ParseRateTable(factory.DefaultRateTableJSON())
	if err != nil {
		return err
	}
	return h.rates.SaveRateTable(ctx, table)
}
