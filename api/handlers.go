/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Clock actions:
    POST   /api/clock                          Record an entry/exit
    GET    /api/workers/{id}/status            Live session state
    GET    /api/workers/{id}/events            Event history

  Reports:
    GET    /api/reports/worker/{id}/monthly    Worker monthly summary
    GET    /api/reports/worker/{id}/overtime   Daily/monthly findings
    GET    /api/reports/employer/{id}/monthly  All workers at an employer
    GET    /api/reports/employer/{id}/overtime Overtime report

  Signatures:
    POST   /api/reports/worker/{id}/sign       Sign a month
    GET    /api/workers/{id}/signatures        Last-N-months status

  Integrity:
    GET    /api/records/{id}/integrity         Stored vs recomputed hash

REPORT DIGESTS:
  Report endpoints set X-Report-Digest to the SHA-256 of the exact JSON
  body, so recipients can verify exported documents independently of this
  system.

ERROR HANDLING:
  Engine errors map to status codes via the engine's classifiers:
  - 400: invalid input, InvalidTimezone, InvalidDuration, policy rejections
  - 404: unknown worker/employer/record
  - 409: ConflictingSession, AlreadySigned
  - 500: storage or internal failures

SECURITY NOTE:
  Authentication and permissions are external collaborators; all endpoints
  here are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clockd/attendance-engine/config"
	"github.com/clockd/attendance-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      engine.Store
	Ledger     *engine.EventLedger
	Recorder   *engine.Recorder
	Reporter   *engine.Reporter
	Signatures *engine.SignatureLedger
	Config     config.Config
}

// NewHandler wires the engine services over the given store.
func NewHandler(store engine.Store, cfg config.Config) *Handler {
	ledger := engine.NewEventLedger(store)
	reporter := engine.NewReporter(ledger, cfg.DefaultTimezone)
	return &Handler{
		Store:    store,
		Ledger:   ledger,
		Recorder: engine.NewRecorder(ledger, cfg.DefaultTimezone),
		Reporter: reporter,
		Signatures: engine.NewSignatureLedger(store, reporter,
			engine.SignaturePolicy{PastMonthsOnly: cfg.Signature.PastMonthsOnly},
			cfg.DefaultTimezone),
		Config: cfg,
	}
}

// =============================================================================
// CLOCK HANDLERS
// =============================================================================

// Clock records one clock action; the state machine decides entry vs exit.
func (h *Handler) Clock(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.WorkerID == "" || req.EmployerID == "" {
		writeError(w, http.StatusBadRequest, "worker_id and employer_id are required", nil)
		return
	}

	at := time.Now()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid timestamp (use RFC3339)", err)
			return
		}
		at = parsed
	}

	ev, err := h.Recorder.RecordEvent(r.Context(),
		engine.WorkerID(req.WorkerID), engine.EmployerID(req.EmployerID),
		req.EmployerName, at, req.Timezone)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(*ev))
}

// GetStatus reports whether the worker is currently clocked in.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))
	employer := engine.EmployerID(r.URL.Query().Get("employer"))
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}

	status, err := h.Recorder.Status(r.Context(), worker, employer, time.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dto := StatusDTO{
		WorkerID:      string(status.WorkerID),
		EmployerID:    string(status.EmployerID),
		State:         string(status.State),
		WorkedMinutes: status.WorkedMinutes,
	}
	if status.EntryTime != nil {
		dto.EntryTime = strPtr(status.EntryTime.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetWorkerEvents returns a worker's event history at one employer.
func (h *Handler) GetWorkerEvents(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	employer := engine.EmployerID(q.Get("employer"))
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}

	zone := q.Get("tz")
	if zone == "" {
		zone = h.Config.DefaultTimezone
	}
	loc, err := engine.LoadZone(zone)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Dates are interpreted in the requested zone, end date inclusive.
	from, err := parseDateOrDefault(q.Get("from"), loc, time.Now().AddDate(0, -1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
		return
	}
	to, err := parseDateOrDefault(q.Get("to"), loc, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
		return
	}
	toExclusive := to.AddDate(0, 0, 1)

	events, err := h.Ledger.InRange(r.Context(), worker, employer, from.UTC(), toExclusive.UTC())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]ClockEventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetWorkerMonthly returns a worker's monthly summary with its digest.
func (h *Handler) GetWorkerMonthly(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	employer := engine.EmployerID(q.Get("employer"))
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}
	year, month, ok := parseYearMonth(w, q.Get("year"), q.Get("month"))
	if !ok {
		return
	}

	summary, err := h.Reporter.MonthlySummary(r.Context(), worker, employer, year, month, q.Get("tz"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	sig, err := h.Store.GetSignature(r.Context(), worker, employer, year, month)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeReport(w, toSummaryDTO(*summary, sig))
}

// GetEmployerMonthly returns summaries for all active workers at an employer.
func (h *Handler) GetEmployerMonthly(w http.ResponseWriter, r *http.Request) {
	employer := engine.EmployerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	year, month, ok := parseYearMonth(w, q.Get("year"), q.Get("month"))
	if !ok {
		return
	}

	summaries, err := h.Reporter.EmployerMonthly(r.Context(), employer, year, month, q.Get("tz"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	workers := make([]MonthlySummaryDTO, len(summaries))
	for i, s := range summaries {
		sig, err := h.Store.GetSignature(r.Context(), s.WorkerID, employer, year, month)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		workers[i] = toSummaryDTO(s, sig)
	}

	writeReport(w, EmployerMonthlyDTO{
		EmployerID:   string(employer),
		Year:         year,
		Month:        int(month),
		TotalWorkers: len(workers),
		Workers:      workers,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// GetWorkerOvertime returns one worker's daily and monthly overtime findings.
func (h *Handler) GetWorkerOvertime(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	employer := engine.EmployerID(q.Get("employer"))
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}
	year, month, ok := parseYearMonth(w, q.Get("year"), q.Get("month"))
	if !ok {
		return
	}

	expected := h.Config.ExpectedMinutesPerDay
	if raw := q.Get("expected"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid expected minutes", err)
			return
		}
		expected = parsed
	}

	summary, err := h.Reporter.MonthlySummary(r.Context(), worker, employer, year, month, q.Get("tz"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	daily := make([]OvertimeFindingDTO, 0)
	for _, f := range engine.DetectDaily(*summary, expected) {
		daily = append(daily, toFindingDTO(f))
	}
	monthly := make([]OvertimeFindingDTO, 0)
	for _, f := range engine.DetectMonthly(*summary, expected) {
		monthly = append(monthly, toFindingDTO(f))
	}

	writeReport(w, WorkerOvertimeReportDTO{
		WorkerID:       string(worker),
		EmployerID:     string(employer),
		Year:           year,
		Month:          int(month),
		ExpectedPerDay: expected,
		Daily:          daily,
		Monthly:        monthly,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetEmployerOvertime returns the employer-wide overtime report.
func (h *Handler) GetEmployerOvertime(w http.ResponseWriter, r *http.Request) {
	employer := engine.EmployerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	year, month, ok := parseYearMonth(w, q.Get("year"), q.Get("month"))
	if !ok {
		return
	}

	expected := h.Config.ExpectedMinutesPerDay
	if raw := q.Get("expected"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid expected minutes", err)
			return
		}
		expected = parsed
	}

	summaries, err := h.Reporter.EmployerMonthly(r.Context(), employer, year, month, q.Get("tz"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	report := engine.BuildOvertimeReport(employer, year, month, summaries, expected, time.Now())

	workers := make([]WorkerOvertimeDTO, len(report.Workers))
	for i, wo := range report.Workers {
		workers[i] = WorkerOvertimeDTO{
			WorkerID:           string(wo.WorkerID),
			TotalWorkedMinutes: wo.TotalWorkedMinutes,
			ExpectedMinutes:    wo.ExpectedMinutes,
			OvertimeMinutes:    wo.OvertimeMinutes,
			OvertimeHours:      engine.MinutesToHours(wo.OvertimeMinutes).StringFixed(2),
			DaysWithOvertime:   wo.DaysWithOvertime,
			Severity:           string(wo.Severity),
		}
	}

	writeReport(w, OvertimeReportDTO{
		EmployerID:     string(report.EmployerID),
		Year:           report.Year,
		Month:          int(report.Month),
		ExpectedPerDay: report.ExpectedPerDay,
		Workers:        workers,
		GeneratedAt:    report.GeneratedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// SIGNATURE HANDLERS
// =============================================================================

// SignMonth records a worker's one-time attestation over a month.
func (h *Handler) SignMonth(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))

	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployerID == "" || req.Year == 0 || req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "employer_id, year and month are required", nil)
		return
	}

	sig, err := h.Signatures.SignMonth(r.Context(), worker,
		engine.EmployerID(req.EmployerID), req.Year, time.Month(req.Month), req.Timezone)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SignatureDTO{
		ID:         string(sig.ID),
		WorkerID:   string(sig.WorkerID),
		EmployerID: string(sig.EmployerID),
		Year:       sig.Year,
		Month:      int(sig.Month),
		Status:     string(engine.SignatureSigned),
		SignedAt:   sig.SignedAt.Format(time.RFC3339),
	})
}

// GetSignatureStatus returns the last-N-months signature status split.
func (h *Handler) GetSignatureStatus(w http.ResponseWriter, r *http.Request) {
	worker := engine.WorkerID(chi.URLParam(r, "id"))
	q := r.URL.Query()

	employer := engine.EmployerID(q.Get("employer"))
	if employer == "" {
		writeError(w, http.StatusBadRequest, "employer query parameter is required", nil)
		return
	}

	months := 12
	if raw := q.Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid months", err)
			return
		}
		months = parsed
	}

	statuses, err := h.Signatures.Status(r.Context(), worker, employer, months)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dto := SignatureStatusDTO{Pending: []MonthStatusDTO{}, Signed: []MonthStatusDTO{}}
	for _, s := range statuses {
		m := MonthStatusDTO{Year: s.Year, Month: int(s.Month), Status: string(s.State)}
		if s.SignedAt != nil {
			m.SignedAt = strPtr(s.SignedAt.Format(time.RFC3339))
		}
		if s.State == engine.SignatureSigned {
			dto.Signed = append(dto.Signed, m)
		} else {
			dto.Pending = append(dto.Pending, m)
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// INTEGRITY HANDLERS
// =============================================================================

// VerifyRecord recomputes a stored record's hash and reports the comparison.
// A mismatch is evidence, not an error: the response is 200 with
// verified=false so inspectors can see both hashes.
func (h *Handler) VerifyRecord(w http.ResponseWriter, r *http.Request) {
	id := engine.EventID(chi.URLParam(r, "id"))

	ev, err := h.Ledger.VerifiedByID(r.Context(), id)
	if err != nil && !errors.Is(err, engine.ErrIntegrityViolation) {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IntegrityDTO{
		RecordID:      string(ev.ID),
		IntegrityHash: ev.IntegrityHash,
		ComputedHash:  engine.HashRecord(*ev),
		Verified:      err == nil,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseYearMonth(w http.ResponseWriter, yearStr, monthStr string) (int, time.Month, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, 0, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (1-12)", err)
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func parseDateOrDefault(raw string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}

// writeReport serializes a report payload, computes its integrity digest
// over the exact response bytes, and exposes it as X-Report-Digest.
func writeReport(w http.ResponseWriter, payload any) {
	digest, err := engine.HashReport(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash report", err)
		return
	}
	w.Header().Set("X-Report-Digest", digest)
	writeJSON(w, http.StatusOK, payload)
}

// writeEngineError maps engine error kinds to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

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
