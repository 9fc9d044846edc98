/*
handlers_test.go - HTTP-level tests for the attendance API

Exercises the full request path: router, handlers, engine services, and
the in-memory store.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockd/attendance-engine/config"
	"github.com/clockd/attendance-engine/engine"
	"github.com/clockd/attendance-engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer() (*Handler, http.Handler) {
	cfg := config.Default()
	cfg.DefaultTimezone = "Europe/Madrid"
	h := NewHandler(store.NewMemory(), cfg)
	return h, NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
			"body: %s", rec.Body.String())
	}
	return rec, decoded
}

func clockAt(t *testing.T, h *Handler, worker, employer string, at time.Time) *engine.ClockEvent {
	t.Helper()
	ev, err := h.Recorder.RecordEvent(context.Background(),
		engine.WorkerID(worker), engine.EmployerID(employer), "Acme", at, "")
	require.NoError(t, err)
	return ev
}

// =============================================================================
// CLOCK ENDPOINT TESTS
// =============================================================================

func TestClock_EntryThenExit(t *testing.T) {
	// GIVEN: A worker with no events
	// WHEN: Posting two clock actions one hour apart
	// THEN: First is an entry, second an exit with a 60-minute duration

	_, router := newTestServer()

	entryReq := map[string]any{
		"worker_id": "w-1", "employer_id": "emp-a", "employer_name": "Acme",
		"timestamp": "2025-03-10T09:00:00Z",
	}
	rec, body := doJSON(t, router, http.MethodPost, "/api/clock", entryReq)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "entry", body["kind"])
	assert.NotEmpty(t, body["integrity_hash"])

	exitReq := map[string]any{
		"worker_id": "w-1", "employer_id": "emp-a", "employer_name": "Acme",
		"timestamp": "2025-03-10T10:00:00Z",
	}
	rec, body = doJSON(t, router, http.MethodPost, "/api/clock", exitReq)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "exit", body["kind"])
	assert.Equal(t, float64(60), body["duration_minutes"])
}

func TestClock_ConflictingSession_409(t *testing.T) {
	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	req := map[string]any{
		"worker_id": "w-1", "employer_id": "emp-b", "employer_name": "Globex",
		"timestamp": "2025-03-10T10:00:00Z",
	}
	rec, body := doJSON(t, router, http.MethodPost, "/api/clock", req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestClock_BadRequests_400(t *testing.T) {
	_, router := newTestServer()

	cases := map[string]map[string]any{
		"missing ids":   {"employer_name": "Acme"},
		"bad timestamp": {"worker_id": "w-1", "employer_id": "emp-a", "timestamp": "10/03/2025"},
		"bad timezone":  {"worker_id": "w-1", "employer_id": "emp-a", "timezone": "Mars/Olympus"},
	}

	for name, req := range cases {
		rec, _ := doJSON(t, router, http.MethodPost, "/api/clock", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestStatus_ReflectsOpenSession(t *testing.T) {
	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Now().Add(-30*time.Minute))

	rec, body := doJSON(t, router, http.MethodGet, "/api/workers/w-1/status?employer=emp-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clocked_in", body["state"])
	assert.NotNil(t, body["worked_minutes"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/workers/w-2/status?employer=emp-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clocked_out", body["state"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/workers/w-1/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "employer is required")
}

// =============================================================================
// REPORT ENDPOINT TESTS
// =============================================================================

func TestWorkerMonthly_ReportWithDigest(t *testing.T) {
	// GIVEN: An 8-hour day with a lunch pause in March 2025
	// WHEN: Fetching the worker's monthly report
	// THEN: Totals are correct and X-Report-Digest is set

	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC))

	rec, body := doJSON(t, router, http.MethodGet,
		"/api/reports/worker/w-1/monthly?employer=emp-a&year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, float64(480), body["total_worked_minutes"])
	assert.Equal(t, "8.00", body["total_worked_hours"])
	assert.Equal(t, float64(60), body["total_pause_minutes"])
	assert.Equal(t, float64(1), body["days_worked"])
	assert.Equal(t, "pending", body["signature_status"])
	assert.Regexp(t, "^[0-9a-f]{64}$", rec.Header().Get("X-Report-Digest"))
}

func TestWorkerMonthly_BadMonth_400(t *testing.T) {
	_, router := newTestServer()

	rec, _ := doJSON(t, router, http.MethodGet,
		"/api/reports/worker/w-1/monthly?employer=emp-a&year=2025&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployerMonthly_ListsActiveWorkers(t *testing.T) {
	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-2", "emp-a", time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-2", "emp-a", time.Date(2025, time.March, 11, 14, 0, 0, 0, time.UTC))

	rec, body := doJSON(t, router, http.MethodGet,
		"/api/reports/employer/emp-a/monthly?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(2), body["total_workers"])
	workers, ok := body["workers"].([]any)
	require.True(t, ok)
	assert.Len(t, workers, 2)
	assert.NotEmpty(t, rec.Header().Get("X-Report-Digest"))
}

func TestWorkerOvertime_DailyAndMonthlyFindings(t *testing.T) {
	// GIVEN: One 9-hour day and one 7-hour day
	// WHEN: Fetching the worker's overtime findings
	// THEN: One daily finding (60 excess), no monthly finding (960 expected)

	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 11, 16, 0, 0, 0, time.UTC))

	rec, body := doJSON(t, router, http.MethodGet,
		"/api/reports/worker/w-1/overtime?employer=emp-a&year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	daily, ok := body["daily_findings"].([]any)
	require.True(t, ok)
	require.Len(t, daily, 1)
	finding := daily[0].(map[string]any)
	assert.Equal(t, "2025-03-10", finding["period"])
	assert.Equal(t, float64(60), finding["excess_minutes"])
	assert.Equal(t, "moderate", finding["severity"])

	monthly, ok := body["monthly_findings"].([]any)
	require.True(t, ok)
	assert.Empty(t, monthly)
}

func TestEmployerOvertime_FlagsExcess(t *testing.T) {
	// GIVEN: A 10-hour day against the 8-hour default
	// WHEN: Fetching the overtime report
	// THEN: The worker appears with 120 overtime minutes

	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC))

	rec, body := doJSON(t, router, http.MethodGet,
		"/api/reports/employer/emp-a/overtime?year=2025&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	workers, ok := body["workers_with_overtime"].([]any)
	require.True(t, ok)
	require.Len(t, workers, 1)

	line := workers[0].(map[string]any)
	assert.Equal(t, "w-1", line["worker_id"])
	assert.Equal(t, float64(120), line["overtime_minutes"])
	assert.Equal(t, "2.00", line["overtime_hours"])
	assert.Equal(t, "severe", line["severity"])
}

// =============================================================================
// SIGNATURE ENDPOINT TESTS
// =============================================================================

func TestSignMonth_FlowAndConflicts(t *testing.T) {
	h, router := newTestServer()

	// A closed shift two months back.
	target := engine.PreviousMonths(time.Now().UTC(), 2)[1]
	entry := time.Date(target.Year, target.Month, 15, 9, 0, 0, 0, time.UTC)
	clockAt(t, h, "w-1", "emp-a", entry)
	clockAt(t, h, "w-1", "emp-a", entry.Add(8*time.Hour))

	signReq := map[string]any{"employer_id": "emp-a", "year": target.Year, "month": int(target.Month)}

	rec, body := doJSON(t, router, http.MethodPost, "/api/reports/worker/w-1/sign", signReq)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "signed", body["status"])
	assert.NotEmpty(t, body["signed_at"])

	// Signing twice conflicts.
	rec, _ = doJSON(t, router, http.MethodPost, "/api/reports/worker/w-1/sign", signReq)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The running month is not signable.
	now := time.Now()
	currentReq := map[string]any{"employer_id": "emp-a", "year": now.Year(), "month": int(now.Month())}
	rec, _ = doJSON(t, router, http.MethodPost, "/api/reports/worker/w-1/sign", currentReq)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignatureStatus_SplitsPendingAndSigned(t *testing.T) {
	h, router := newTestServer()

	pendingMonth := engine.PreviousMonths(time.Now().UTC(), 3)[2]
	entry := time.Date(pendingMonth.Year, pendingMonth.Month, 15, 9, 0, 0, 0, time.UTC)
	clockAt(t, h, "w-1", "emp-a", entry)
	clockAt(t, h, "w-1", "emp-a", entry.Add(8*time.Hour))

	signed := engine.PreviousMonths(time.Now().UTC(), 2)[1]
	_, err := h.Signatures.SignMonth(context.Background(), "w-1", "emp-a", signed.Year, signed.Month, "")
	require.NoError(t, err)

	rec, body := doJSON(t, router, http.MethodGet, "/api/workers/w-1/signatures?employer=emp-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	pending, ok := body["pending"].([]any)
	require.True(t, ok)
	signedList, ok := body["signed"].([]any)
	require.True(t, ok)

	require.Len(t, pending, 1)
	require.Len(t, signedList, 1)
	assert.Equal(t, float64(pendingMonth.Month), pending[0].(map[string]any)["month"])
	assert.Equal(t, float64(signed.Month), signedList[0].(map[string]any)["month"])
}

// =============================================================================
// INTEGRITY ENDPOINT TESTS
// =============================================================================

func TestVerifyRecord_Endpoint(t *testing.T) {
	h, router := newTestServer()
	ev := clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	rec, body := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/records/%s/integrity", ev.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, string(ev.ID), body["record_id"])
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, body["integrity_hash"], body["computed_hash"])
}

func TestVerifyRecord_Unknown_404(t *testing.T) {
	_, router := newTestServer()

	rec, _ := doJSON(t, router, http.MethodGet, "/api/records/missing/integrity", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// EVENT HISTORY TESTS
// =============================================================================

func TestWorkerEvents_RangeQuery(t *testing.T) {
	h, router := newTestServer()
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	clockAt(t, h, "w-1", "emp-a", time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC))

	req := httptest.NewRequest(http.MethodGet,
		"/api/workers/w-1/events?employer=emp-a&from=2025-03-01&to=2025-03-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "entry", events[0]["kind"])
	assert.Equal(t, "exit", events[1]["kind"])
}
