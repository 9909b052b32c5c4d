/*
handlers.go - HTTP API handlers for the driver payroll engine

PURPOSE:
  Exposes batch statements, rate tables and tax profiles via REST API.
  Handles HTTP request/response and JSON serialization, and delegates to
  payroll.Service for every batch mutation.

ENDPOINTS:
  Batches:
    GET    /api/batches                       List batches (?driver_id=&status=)
    POST   /api/batches                       Create a draft batch
    GET    /api/batches/{id}                  Batch with entries and totals
    POST   /api/batches/{id}/loads            Add a load (optional rate_table_id)
    POST   /api/batches/{id}/waits            Add a waiting-time entry
    POST   /api/batches/{id}/hourly           Add an hourly entry
    PUT    /api/batches/{id}/status           Change status
    GET    /api/batches/{id}/statement.csv    Statement as CSV
    GET    /api/batches/{id}/taxes            Share taxed under ?jurisdiction=
    GET    /api/batches/{id}/history          Lifecycle events

  Rate tables:
    GET    /api/rate-tables                   List tables
    POST   /api/rate-tables                   Create or replace a table from JSON
    GET    /api/rate-tables/{id}              Get a table

  Taxes:
    GET    /api/tax-profiles                  Registered jurisdictions
    POST   /api/taxes/calculate               Taxes on an arbitrary base

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, unknown jurisdiction
  - 404: Batch or rate table not found
  - 409: Batch not mutable, duplicate batch number, concurrent modification
  - 500: Internal errors (logged)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - ratecache.go: Rate table cache
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/driver-payroll/factory"
	"github.com/warp/driver-payroll/payroll"
	"github.com/warp/driver-payroll/statement"
	"github.com/warp/driver-payroll/store/sqlite"
	"github.com/warp/driver-payroll/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *payroll.Service
	Factory *factory.ConfigFactory
	Logger  *zap.Logger

	rates *rateCache

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store. Rate tables are read through an
// LRU cache of cacheSize entries.
func NewHandler(store *sqlite.Store, logger *zap.Logger, cacheSize int) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rates, err := newRateCache(store, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("rate cache: %w", err)
	}
	svc := payroll.NewService(store, rates, logger)
	svc.History = store

	return &Handler{
		Store:   store,
		Service: svc,
		Factory: factory.NewConfigFactory(),
		Logger:  logger,
		rates:   rates,
	}, nil
}

// LoadRateTables warms the rate table cache from the database.
func (h *Handler) LoadRateTables(ctx context.Context) error {
	n, err := h.rates.warm(ctx)
	if err != nil {
		return err
	}
	h.Logger.Info("rate tables cached", zap.Int("count", n))
	return nil
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// ListBatches returns batches, optionally filtered by driver and status.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	f := payroll.Filter{DriverID: payroll.DriverID(r.URL.Query().Get("driver_id"))}
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := payroll.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status filter", err)
			return
		}
		f.Status = status
	}

	batches, err := h.Service.ListBatches(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to list batches", err)
		return
	}

	dtos := make([]BatchDTO, len(batches))
	for i, b := range batches {
		dtos[i] = toBatchDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBatch creates a new draft batch.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid batch", err)
		return
	}

	b, err := h.Service.CreateBatch(r.Context(), in)
	if err != nil {
		h.fail(w, "Failed to create batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(b))
}

// GetBatch returns a batch with its entries and totals.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBatch(r.Context(), batchID(r))
	if err != nil {
		h.fail(w, "Failed to get batch", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(b))
}

// AddLoad appends a load. With rate_table_id set, the load is priced from
// the table's band for its mileage.
func (h *Handler) AddLoad(w http.ResponseWriter, r *http.Request) {
	var req AddLoadRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid load", err)
		return
	}

	var b *payroll.Batch
	if req.RateTableID != "" {
		b, err = h.Service.AddLoadFromTable(r.Context(), batchID(r), req.RateTableID, in)
	} else {
		b, err = h.Service.AddLoad(r.Context(), batchID(r), in)
	}
	if err != nil {
		h.fail(w, "Failed to add load", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(b))
}

// AddWait appends a waiting-time entry.
func (h *Handler) AddWait(w http.ResponseWriter, r *http.Request) {
	var req AddWaitRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid wait", err)
		return
	}

	b, err := h.Service.AddWait(r.Context(), batchID(r), in)
	if err != nil {
		h.fail(w, "Failed to add wait", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(b))
}

// AddHourly appends an hourly-work entry.
func (h *Handler) AddHourly(w http.ResponseWriter, r *http.Request) {
	var req AddHourlyRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hourly entry", err)
		return
	}

	b, err := h.Service.AddHourly(r.Context(), batchID(r), in)
	if err != nil {
		h.fail(w, "Failed to add hourly entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchDTO(b))
}

// SetStatus moves a batch to another status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if !decode(w, r, &req) {
		return
	}
	status, err := payroll.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid status", err)
		return
	}

	b, err := h.Service.SetStatus(r.Context(), batchID(r), status)
	if err != nil {
		h.fail(w, "Failed to set status", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(b))
}

// GetStatementCSV streams the batch statement as CSV.
func (h *Handler) GetStatementCSV(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBatch(r.Context(), batchID(r))
	if err != nil {
		h.fail(w, "Failed to get batch", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.BatchNumber()+".csv"))
	w.WriteHeader(http.StatusOK)
	if err := statement.WriteCSV(w, b); err != nil {
		h.Logger.Error("failed to write statement", zap.String("batch_id", string(b.ID())), zap.Error(err))
	}
}

// GetBatchTaxes returns the driver share taxed under another jurisdiction.
// The batch totals are not affected.
func (h *Handler) GetBatchTaxes(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("jurisdiction")
	if code == "" {
		code = tax.JurisdictionQuebec
	}
	profile, err := tax.Lookup(code)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown jurisdiction", err)
		return
	}

	b, err := h.Service.GetBatch(r.Context(), batchID(r))
	if err != nil {
		h.fail(w, "Failed to get batch", err)
		return
	}
	amounts, err := b.TaxesUnder(profile)
	if err != nil {
		h.fail(w, "Failed to calculate taxes", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxAmountsDTO(strings.ToUpper(code), b.Totals().DriverShareAmount, amounts))
}

// GetBatchHistory returns the batch's lifecycle events, oldest first.
func (h *Handler) GetBatchHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.BatchHistory(r.Context(), batchID(r))
	if err != nil {
		h.fail(w, "Failed to get batch history", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RATE TABLE HANDLERS
// =============================================================================

// ListRateTables returns all rate tables.
func (h *Handler) ListRateTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.rates.ListRateTables(r.Context())
	if err != nil {
		h.fail(w, "Failed to list rate tables", err)
		return
	}

	dtos := make([]factory.RateTableJSON, len(tables))
	for i, t := range tables {
		dtos[i] = h.Factory.RateTableToJSON(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRateTable creates or replaces a rate table from its JSON definition.
func (h *Handler) CreateRateTable(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	table, err := h.Factory.ParseRateTable(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate table", err)
		return
	}
	if err := h.rates.SaveRateTable(r.Context(), table); err != nil {
		h.fail(w, "Failed to save rate table", err)
		return
	}

	h.Logger.Info("rate table saved", zap.String("table_id", table.ID), zap.Int("bands", len(table.Bands)))
	writeJSON(w, http.StatusCreated, h.Factory.RateTableToJSON(table))
}

// GetRateTable returns a single rate table.
func (h *Handler) GetRateTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.rates.GetRateTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get rate table", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.RateTableToJSON(table))
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// ListTaxProfiles returns every registered jurisdiction.
func (h *Handler) ListTaxProfiles(w http.ResponseWriter, r *http.Request) {
	codes := tax.Jurisdictions()
	dtos := make([]TaxProfileDTO, 0, len(codes))
	for _, code := range codes {
		p, err := tax.Lookup(code)
		if err != nil {
			continue
		}
		dtos = append(dtos, TaxProfileDTO{
			Code:           code,
			TaxProfileJSON: h.Factory.TaxProfileToJSON(p),
			TotalRate:      p.TotalRate(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CalculateTax applies a jurisdiction's profile to an arbitrary base.
func (h *Handler) CalculateTax(w http.ResponseWriter, r *http.Request) {
	var req CalculateTaxRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = tax.JurisdictionQuebec
	}

	profile, err := tax.Lookup(req.Jurisdiction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown jurisdiction", err)
		return
	}
	amounts, err := tax.Calculate(req.Base, profile, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to calculate taxes", err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxAmountsDTO(strings.ToUpper(req.Jurisdiction), req.Base, amounts))
}

// ResetDatabase clears batches and rate tables. Tax profiles are kept.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.rates.purge()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps a domain error to its HTTP status. Only 500s are logged.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case payroll.IsClientError(err):
		return http.StatusBadRequest
	case payroll.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrNotMutable),
		errors.Is(err, payroll.ErrDuplicateBatchNumber),
		payroll.IsRetryable(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func batchID(r *http.Request) payroll.BatchID {
	return payroll.BatchID(chi.URLParam(r, "id"))
}
