/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Report DTOs are
  also the canonical hashing input: their field order is fixed, so the
  integrity digest of a report payload is reproducible byte-for-byte.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/integrity.go: HashReport over report DTOs
*/
package api

import (
	"time"

	"github.com/clockd/attendance-engine/engine"
)

// =============================================================================
// CLOCK ACTIONS
// =============================================================================

// ClockRequest records one clock action. The event kind (entry vs exit) is
// decided by the state machine, never by the client.
type ClockRequest struct {
	WorkerID     string `json:"worker_id"`
	EmployerID   string `json:"employer_id"`
	EmployerName string `json:"employer_name"`
	Timezone     string `json:"timezone,omitempty"`  // IANA name; empty = configured default
	Timestamp    string `json:"timestamp,omitempty"` // RFC3339; empty = server now
}

// ClockEventDTO represents a clock event in API responses.
type ClockEventDTO struct {
	ID              string `json:"id"`
	WorkerID        string `json:"worker_id"`
	EmployerID      string `json:"employer_id"`
	EmployerName    string `json:"employer_name"`
	Kind            string `json:"kind"`
	Timestamp       string `json:"timestamp"` // UTC, RFC3339
	LocalTime       string `json:"local_time"`
	Timezone        string `json:"timezone"`
	DurationMinutes *int64 `json:"duration_minutes,omitempty"`
	IntegrityHash   string `json:"integrity_hash"`
}

// StatusDTO is a worker's live session state at one employer.
type StatusDTO struct {
	WorkerID      string  `json:"worker_id"`
	EmployerID    string  `json:"employer_id"`
	State         string  `json:"state"` // clocked_in | clocked_out
	EntryTime     *string `json:"entry_time,omitempty"`
	WorkedMinutes *int64  `json:"worked_minutes,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// DailyBreakdownDTO is one local calendar day in a monthly report.
type DailyBreakdownDTO struct {
	Date          string  `json:"date"` // YYYY-MM-DD, local
	FirstEntry    *string `json:"first_entry,omitempty"`
	LastExit      *string `json:"last_exit,omitempty"`
	WorkedMinutes int64   `json:"worked_minutes"`
	PauseMinutes  int64   `json:"pause_minutes"`
	PauseCount    int     `json:"pause_count"`
	RecordCount   int     `json:"record_count"`
	SessionOpen   bool    `json:"session_open"`
}

// MonthlySummaryDTO is a worker's monthly report at one employer.
type MonthlySummaryDTO struct {
	WorkerID     string `json:"worker_id"`
	EmployerID   string `json:"employer_id"`
	EmployerName string `json:"employer_name,omitempty"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`

	Days []DailyBreakdownDTO `json:"days"`

	DaysWorked         int    `json:"days_worked"`
	TotalWorkedMinutes int64  `json:"total_worked_minutes"`
	TotalWorkedHours   string `json:"total_worked_hours"` // decimal, 2 places
	TotalPauseMinutes  int64  `json:"total_pause_minutes"`
	HasOpenSession     bool   `json:"has_open_session"`

	SignatureStatus string  `json:"signature_status"` // pending | signed
	SignedAt        *string `json:"signed_at,omitempty"`

	GeneratedAt string `json:"generated_at"`
}

// EmployerMonthlyDTO covers all active workers at one employer for a month.
type EmployerMonthlyDTO struct {
	EmployerID   string              `json:"employer_id"`
	Year         int                 `json:"year"`
	Month        int                 `json:"month"`
	TotalWorkers int                 `json:"total_workers"`
	Workers      []MonthlySummaryDTO `json:"workers"`
	GeneratedAt  string              `json:"generated_at"`
}

// OvertimeFindingDTO is one overtime finding (a day or a month).
type OvertimeFindingDTO struct {
	WorkerID        string `json:"worker_id"`
	Period          string `json:"period"` // YYYY-MM-DD or YYYY-MM
	PeriodKind      string `json:"period_kind"`
	ExpectedMinutes int64  `json:"expected_minutes"`
	ActualMinutes   int64  `json:"actual_minutes"`
	ExcessMinutes   int64  `json:"excess_minutes"`
	Severity        string `json:"severity"`
}

// WorkerOvertimeReportDTO carries one worker's daily and monthly findings.
type WorkerOvertimeReportDTO struct {
	WorkerID       string               `json:"worker_id"`
	EmployerID     string               `json:"employer_id"`
	Year           int                  `json:"year"`
	Month          int                  `json:"month"`
	ExpectedPerDay int64                `json:"expected_minutes_per_day"`
	Daily          []OvertimeFindingDTO `json:"daily_findings"`
	Monthly        []OvertimeFindingDTO `json:"monthly_findings"`
	GeneratedAt    string               `json:"generated_at"`
}

// WorkerOvertimeDTO is one worker's line in an employer overtime report.
type WorkerOvertimeDTO struct {
	WorkerID           string `json:"worker_id"`
	TotalWorkedMinutes int64  `json:"total_worked_minutes"`
	ExpectedMinutes    int64  `json:"expected_minutes"`
	OvertimeMinutes    int64  `json:"overtime_minutes"`
	OvertimeHours      string `json:"overtime_hours"` // decimal, 2 places
	DaysWithOvertime   int    `json:"days_with_overtime"`
	Severity           string `json:"severity"`
}

// OvertimeReportDTO is the employer-wide overtime report.
type OvertimeReportDTO struct {
	EmployerID     string              `json:"employer_id"`
	Year           int                 `json:"year"`
	Month          int                 `json:"month"`
	ExpectedPerDay int64               `json:"expected_minutes_per_day"`
	Workers        []WorkerOvertimeDTO `json:"workers_with_overtime"`
	GeneratedAt    string              `json:"generated_at"`
}

// =============================================================================
// SIGNATURES
// =============================================================================

// SignRequest asks to sign one month at one employer.
type SignRequest struct {
	EmployerID string `json:"employer_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Timezone   string `json:"timezone,omitempty"`
}

// SignatureDTO represents a recorded monthly signature.
type SignatureDTO struct {
	ID         string `json:"id"`
	WorkerID   string `json:"worker_id"`
	EmployerID string `json:"employer_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Status     string `json:"status"` // always "signed"
	SignedAt   string `json:"signed_at"`
}

// MonthStatusDTO is one month's signature state.
type MonthStatusDTO struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Status   string  `json:"status"` // pending | signed
	SignedAt *string `json:"signed_at,omitempty"`
}

// SignatureStatusDTO splits the last N months into pending and signed.
type SignatureStatusDTO struct {
	Pending []MonthStatusDTO `json:"pending"`
	Signed  []MonthStatusDTO `json:"signed"`
}

// =============================================================================
// INTEGRITY
// =============================================================================

// IntegrityDTO is the result of verifying one stored record.
type IntegrityDTO struct {
	RecordID      string `json:"record_id"`
	IntegrityHash string `json:"integrity_hash"` // stored at creation time
	ComputedHash  string `json:"computed_hash"`  // recomputed from current fields
	Verified      bool   `json:"verified"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEventDTO(ev engine.ClockEvent) ClockEventDTO {
	return ClockEventDTO{
		ID:              string(ev.ID),
		WorkerID:        string(ev.WorkerID),
		EmployerID:      string(ev.EmployerID),
		EmployerName:    ev.EmployerName,
		Kind:            string(ev.Kind),
		Timestamp:       ev.UTC.Format(time.RFC3339),
		LocalTime:       ev.Local.Time.Format(time.RFC3339),
		Timezone:        ev.Local.Zone,
		DurationMinutes: ev.DurationMinutes,
		IntegrityHash:   ev.IntegrityHash,
	}
}

func toDayDTO(d engine.DailyBreakdown) DailyBreakdownDTO {
	dto := DailyBreakdownDTO{
		Date:          d.Date.String(),
		WorkedMinutes: d.WorkedMinutes,
		PauseMinutes:  d.PauseMinutes,
		PauseCount:    d.PauseCount,
		RecordCount:   d.RecordCount,
		SessionOpen:   d.SessionOpen,
	}
	if d.FirstEntry != nil {
		dto.FirstEntry = strPtr(d.FirstEntry.Format(time.RFC3339))
	}
	if d.LastExit != nil {
		dto.LastExit = strPtr(d.LastExit.Format(time.RFC3339))
	}
	return dto
}

func toSummaryDTO(s engine.MonthlySummary, sig *engine.MonthlySignature) MonthlySummaryDTO {
	days := make([]DailyBreakdownDTO, len(s.Days))
	for i, d := range s.Days {
		days[i] = toDayDTO(d)
	}

	dto := MonthlySummaryDTO{
		WorkerID:           string(s.WorkerID),
		EmployerID:         string(s.EmployerID),
		EmployerName:       s.EmployerName,
		Year:               s.Year,
		Month:              int(s.Month),
		Days:               days,
		DaysWorked:         s.DaysWorked,
		TotalWorkedMinutes: s.TotalWorkedMinutes,
		TotalWorkedHours:   s.WorkedHours().StringFixed(2),
		TotalPauseMinutes:  s.TotalPauseMinutes,
		HasOpenSession:     s.HasOpenSession,
		SignatureStatus:    string(engine.SignaturePending),
		GeneratedAt:        s.GeneratedAt.Format(time.RFC3339),
	}
	if sig != nil {
		dto.SignatureStatus = string(engine.SignatureSigned)
		dto.SignedAt = strPtr(sig.SignedAt.Format(time.RFC3339))
	}
	return dto
}

func toFindingDTO(f engine.OvertimeFinding) OvertimeFindingDTO {
	return OvertimeFindingDTO{
		WorkerID:        string(f.WorkerID),
		Period:          f.Period.String(),
		PeriodKind:      string(f.Period.Kind),
		ExpectedMinutes: f.ExpectedMinutes,
		ActualMinutes:   f.ActualMinutes,
		ExcessMinutes:   f.ExcessMinutes,
		Severity:        string(f.Severity),
	}
}

func strPtr(s string) *string {
	return &s
}
