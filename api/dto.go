/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll domain model (unexported fields, getters) from the external
  API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND RATES:
  money.Amount fields serialize as strings with two decimals ("36.79").
  decimal.Decimal fields (rates, miles, percentages) serialize as exact
  decimal strings. Both accept a JSON number or a string on input.

DATES:
  Statement and entry dates use "2006-01-02".

VALIDATION:
  Validation is done by the payroll constructors, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: RateTableJSON and TaxProfileJSON
*/
package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/driver-payroll/factory"
	"github.com/warp/driver-payroll/money"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/tax"
)

// =============================================================================
// BATCH REQUESTS
// =============================================================================

// CreateBatchRequest is the body of POST /api/batches.
type CreateBatchRequest struct {
	BatchNumber             string          `json:"batch_number"`
	DriverID                string          `json:"driver_id"`
	StatementStartDate      string          `json:"statement_start_date"`
	StatementEndDate        string          `json:"statement_end_date"`
	WaitingPayoutPercentage decimal.Decimal `json:"waiting_payout_percentage"`
	DriverSharePercentage   decimal.Decimal `json:"driver_share_percentage"`
}

// AddLoadRequest is the body of POST /api/batches/{id}/loads. With
// rate_table_id set, rate_type, rate and band_label come from the table.
type AddLoadRequest struct {
	LoadNumber                string          `json:"load_number"`
	ReferenceNumber           string          `json:"reference_number,omitempty"`
	OriginCode                string          `json:"origin_code,omitempty"`
	DestinationCode           string          `json:"destination_code,omitempty"`
	Date                      string          `json:"date,omitempty"`
	LegMiles                  decimal.Decimal `json:"leg_miles"`
	LoadType                  string          `json:"load_type,omitempty"`
	RateType                  string          `json:"rate_type,omitempty"`
	Rate                      decimal.Decimal `json:"rate"`
	BandLabel                 string          `json:"band_label,omitempty"`
	FSCPay                    money.Amount    `json:"fsc_pay"`
	TemporaryEmergencyFuelPay money.Amount    `json:"temporary_emergency_fuel_pay"`
	RateTableID               string          `json:"rate_table_id,omitempty"`
}

// AddWaitRequest is the body of POST /api/batches/{id}/waits.
type AddWaitRequest struct {
	Reference     string           `json:"reference,omitempty"`
	Date          string           `json:"date,omitempty"`
	WaitMinutes   int              `json:"wait_minutes"`
	RatePerMinute decimal.Decimal  `json:"rate_per_minute"`
	Multiplier    *decimal.Decimal `json:"multiplier,omitempty"`
	InvoicePay    *money.Amount    `json:"invoice_pay,omitempty"`
}

// AddHourlyRequest is the body of POST /api/batches/{id}/hourly.
type AddHourlyRequest struct {
	Date        string          `json:"date,omitempty"`
	Hours       int             `json:"hours"`
	Minutes     int             `json:"minutes"`
	RatePerHour decimal.Decimal `json:"rate_per_hour"`
	InvoicePay  *money.Amount   `json:"invoice_pay,omitempty"`
}

// SetStatusRequest is the body of PUT /api/batches/{id}/status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// BATCH RESPONSES
// =============================================================================

// BatchDTO represents a batch with its totals and entries.
type BatchDTO struct {
	ID                      string          `json:"id"`
	BatchNumber             string          `json:"batch_number"`
	DriverID                string          `json:"driver_id"`
	StatementStartDate      string          `json:"statement_start_date"`
	StatementEndDate        string          `json:"statement_end_date"`
	WaitingPayoutPercentage decimal.Decimal `json:"waiting_payout_percentage"`
	DriverSharePercentage   decimal.Decimal `json:"driver_share_percentage"`
	Status                  string          `json:"status"`
	Version                 int             `json:"version"`
	Totals                  TotalsDTO       `json:"totals"`
	Loads                   []LoadDTO       `json:"loads"`
	Waits                   []WaitDTO       `json:"waits"`
	Hourly                  []HourlyDTO     `json:"hourly"`
	CreatedAt               string          `json:"created_at"`
	UpdatedAt               string          `json:"updated_at"`
}

// TotalsDTO represents the derived totals of a batch.
type TotalsDTO struct {
	TripTotal         money.Amount `json:"trip_total"`
	WaitingRawTotal   money.Amount `json:"waiting_raw_total"`
	WaitingTotal      money.Amount `json:"waiting_total"`
	HourlyTotal       money.Amount `json:"hourly_total"`
	GrossRevenue      money.Amount `json:"gross_revenue"`
	DriverShareAmount money.Amount `json:"driver_share_amount"`
	GST               money.Amount `json:"gst"`
	QST               money.Amount `json:"qst"`
	TaxTotal          money.Amount `json:"tax_total"`
	NetPay            money.Amount `json:"net_pay"`
	TotalPay          money.Amount `json:"total_pay"`
}

type LoadDTO struct {
	LoadNumber                string          `json:"load_number"`
	ReferenceNumber           string          `json:"reference_number,omitempty"`
	OriginCode                string          `json:"origin_code,omitempty"`
	DestinationCode           string          `json:"destination_code,omitempty"`
	Date                      string          `json:"date,omitempty"`
	LegMiles                  decimal.Decimal `json:"leg_miles"`
	LoadType                  string          `json:"load_type,omitempty"`
	RateType                  string          `json:"rate_type"`
	Rate                      decimal.Decimal `json:"rate"`
	BandLabel                 string          `json:"band_label,omitempty"`
	BasePay                   money.Amount    `json:"base_pay"`
	FSCPay                    money.Amount    `json:"fsc_pay"`
	TemporaryEmergencyFuelPay money.Amount    `json:"temporary_emergency_fuel_pay"`
	NetPay                    money.Amount    `json:"net_pay"`
}

type WaitDTO struct {
	Reference     string          `json:"reference,omitempty"`
	Date          string          `json:"date,omitempty"`
	WaitMinutes   int             `json:"wait_minutes"`
	RatePerMinute decimal.Decimal `json:"rate_per_minute"`
	Multiplier    decimal.Decimal `json:"multiplier"`
	RawPay        money.Amount    `json:"raw_pay"`
	FinalPay      money.Amount    `json:"final_pay"`
	InvoicePay    bool            `json:"invoice_pay"`
}

type HourlyDTO struct {
	Date        string          `json:"date,omitempty"`
	Hours       int             `json:"hours"`
	Minutes     int             `json:"minutes"`
	RatePerHour decimal.Decimal `json:"rate_per_hour"`
	TotalPay    money.Amount    `json:"total_pay"`
	InvoicePay  bool            `json:"invoice_pay"`
}

// EventDTO is one entry of a batch's history.
type EventDTO struct {
	Version int          `json:"version"`
	Kind    string       `json:"kind"`
	Detail  string       `json:"detail,omitempty"`
	Status  string       `json:"status"`
	NetPay  money.Amount `json:"net_pay"`
	At      string       `json:"at"`
}

// =============================================================================
// TAX TYPES
// =============================================================================

// TaxAmountsDTO is a per-component tax breakdown.
type TaxAmountsDTO struct {
	Jurisdiction string       `json:"jurisdiction"`
	Base         money.Amount `json:"base"`
	GST          money.Amount `json:"gst"`
	QST          money.Amount `json:"qst"`
	PST          money.Amount `json:"pst"`
	HST          money.Amount `json:"hst"`
	Total        money.Amount `json:"total"`
}

// CalculateTaxRequest is the body of POST /api/taxes/calculate.
type CalculateTaxRequest struct {
	Base         money.Amount `json:"base"`
	Jurisdiction string       `json:"jurisdiction"`
}

// TaxProfileDTO is a registered jurisdiction and its rates.
type TaxProfileDTO struct {
	Code string `json:"code"`
	factory.TaxProfileJSON
	TotalRate decimal.Decimal `json:"total_rate"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBatchDTO(b *payroll.Batch) BatchDTO {
	tot := b.Totals()
	dto := BatchDTO{
		ID:                      string(b.ID()),
		BatchNumber:             b.BatchNumber(),
		DriverID:                string(b.DriverID()),
		StatementStartDate:      formatDate(b.StatementStartDate()),
		StatementEndDate:        formatDate(b.StatementEndDate()),
		WaitingPayoutPercentage: b.WaitingPayoutPercentage(),
		DriverSharePercentage:   b.DriverSharePercentage(),
		Status:                  string(b.Status()),
		Version:                 b.Version(),
		Totals: TotalsDTO{
			TripTotal:         tot.TripTotal,
			WaitingRawTotal:   tot.WaitingRawTotal,
			WaitingTotal:      tot.WaitingTotal,
			HourlyTotal:       tot.HourlyTotal,
			GrossRevenue:      tot.GrossRevenue,
			DriverShareAmount: tot.DriverShareAmount,
			GST:               tot.Taxes.GST,
			QST:               tot.Taxes.QST,
			TaxTotal:          tot.Taxes.Total(),
			NetPay:            tot.NetPay,
			TotalPay:          tot.TotalPay(),
		},
		Loads:     make([]LoadDTO, 0, len(b.Loads())),
		Waits:     make([]WaitDTO, 0, len(b.Waits())),
		Hourly:    make([]HourlyDTO, 0, len(b.Hourlies())),
		CreatedAt: b.CreatedAt().Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt().Format(time.RFC3339),
	}

	for _, l := range b.Loads() {
		dto.Loads = append(dto.Loads, LoadDTO{
			LoadNumber:                l.LoadNumber(),
			ReferenceNumber:           l.ReferenceNumber(),
			OriginCode:                l.OriginCode(),
			DestinationCode:           l.DestinationCode(),
			Date:                      formatDate(l.Date()),
			LegMiles:                  l.LegMiles(),
			LoadType:                  string(l.LoadType()),
			RateType:                  string(l.RateType()),
			Rate:                      l.Rate(),
			BandLabel:                 l.BandLabel(),
			BasePay:                   l.BasePay(),
			FSCPay:                    l.FSCPay(),
			TemporaryEmergencyFuelPay: l.TemporaryEmergencyFuelPay(),
			NetPay:                    l.NetPay(),
		})
	}
	for _, w := range b.Waits() {
		dto.Waits = append(dto.Waits, WaitDTO{
			Reference:     w.Reference(),
			Date:          formatDate(w.Date()),
			WaitMinutes:   w.WaitMinutes(),
			RatePerMinute: w.RatePerMinute(),
			Multiplier:    w.Multiplier(),
			RawPay:        w.RawPay(),
			FinalPay:      w.FinalPay(),
			InvoicePay:    w.HasInvoicePay(),
		})
	}
	for _, h := range b.Hourlies() {
		dto.Hourly = append(dto.Hourly, HourlyDTO{
			Date:        formatDate(h.Date()),
			Hours:       h.Hours(),
			Minutes:     h.Minutes(),
			RatePerHour: h.RatePerHour(),
			TotalPay:    h.TotalPay(),
			InvoicePay:  h.HasInvoicePay(),
		})
	}

	return dto
}

func toEventDTO(e payroll.Event) EventDTO {
	return EventDTO{
		Version: e.Version,
		Kind:    string(e.Kind),
		Detail:  e.Detail,
		Status:  string(e.Status),
		NetPay:  e.NetPay,
		At:      e.At.Format(time.RFC3339),
	}
}

func toTaxAmountsDTO(jurisdiction string, base money.Amount, a tax.Amounts) TaxAmountsDTO {
	return TaxAmountsDTO{
		Jurisdiction: jurisdiction,
		Base:         base,
		GST:          a.GST,
		QST:          a.QST,
		PST:          a.PST,
		HST:          a.HST,
		Total:        a.Total(),
	}
}

func (req CreateBatchRequest) toInput() (payroll.BatchInput, error) {
	start, err := parseDate("statement_start_date", req.StatementStartDate)
	if err != nil {
		return payroll.BatchInput{}, err
	}
	end, err := parseDate("statement_end_date", req.StatementEndDate)
	if err != nil {
		return payroll.BatchInput{}, err
	}
	return payroll.BatchInput{
		BatchNumber:             req.BatchNumber,
		DriverID:                payroll.DriverID(req.DriverID),
		StatementStartDate:      start,
		StatementEndDate:        end,
		WaitingPayoutPercentage: req.WaitingPayoutPercentage,
		DriverSharePercentage:   req.DriverSharePercentage,
	}, nil
}

func (req AddLoadRequest) toInput() (payroll.LoadInput, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return payroll.LoadInput{}, err
	}
	loadType, err := payroll.ParseLoadType(req.LoadType)
	if err != nil {
		return payroll.LoadInput{}, err
	}
	rateType, err := payroll.ParseRateType(req.RateType)
	if err != nil {
		return payroll.LoadInput{}, err
	}
	return payroll.LoadInput{
		LoadNumber:                req.LoadNumber,
		ReferenceNumber:           req.ReferenceNumber,
		OriginCode:                req.OriginCode,
		DestinationCode:           req.DestinationCode,
		Date:                      date,
		LegMiles:                  req.LegMiles,
		LoadType:                  loadType,
		RateType:                  rateType,
		Rate:                      req.Rate,
		BandLabel:                 req.BandLabel,
		FSCPay:                    req.FSCPay,
		TemporaryEmergencyFuelPay: req.TemporaryEmergencyFuelPay,
	}, nil
}

func (req AddWaitRequest) toInput() (payroll.WaitInput, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return payroll.WaitInput{}, err
	}
	return payroll.WaitInput{
		Reference:     req.Reference,
		Date:          date,
		WaitMinutes:   req.WaitMinutes,
		RatePerMinute: req.RatePerMinute,
		Multiplier:    req.Multiplier,
		InvoicePay:    req.InvoicePay,
	}, nil
}

func (req AddHourlyRequest) toInput() (payroll.HourlyInput, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return payroll.HourlyInput{}, err
	}
	return payroll.HourlyInput{
		Date:        date,
		Hours:       req.Hours,
		Minutes:     req.Minutes,
		RatePerHour: req.RatePerHour,
		InvoicePay:  req.InvoicePay,
	}, nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(payroll.DateLayout, s)
	if err != nil {
		return time.Time{}, &payroll.ValidationError{Field: field, Reason: "expected YYYY-MM-DD, got " + s}
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(payroll.DateLayout)
}
