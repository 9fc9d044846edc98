/*
Package engine provides the core attendance recording and reporting engine.

PURPOSE:
  This package contains the domain types and algorithms for turning raw
  clock-in/clock-out events into validated records, daily and monthly work
  summaries, overtime findings, and tamper-evident report payloads.

KEY CONCEPTS IN THIS FILE (types.go):
  - ClockEvent: An immutable entry/exit record with an integrity hash
  - DailyBreakdown / MonthlySummary: Derived, recomputed-on-demand views
  - OvertimeFinding: Read-only comparison against expected working minutes
  - MonthlySignature: One-time worker attestation over a finished month
  - Worker/Employer IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: ClockEvents are never mutated after creation
  2. Determinism: Hashes and aggregates are byte-for-byte reproducible
  3. Explicit time: Every event carries UTC plus its local projection
  4. Type Safety: Strong typing for IDs prevents mixing worker/employer IDs

SEE ALSO:
  - clock.go: The entry/exit state machine
  - report.go: Daily and monthly aggregation
  - integrity.go: SHA-256 hashing and verification
  - signature.go: Monthly signature ledger
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WorkerID string
type EmployerID string
type EventID string
type SignatureID string

// =============================================================================
// EVENT KIND
// =============================================================================

// EventKind identifies a clock action. The state machine decides the kind;
// callers never choose it directly.
type EventKind string

const (
	KindEntry EventKind = "entry"
	KindExit  EventKind = "exit"
)

// =============================================================================
// CLOCK EVENT - Immutable attendance record
// =============================================================================

// ClockEvent is a single timestamped clock action. Once created it is never
// mutated; corrections happen outside this engine through the persistence
// collaborator's own lifecycle.
//
// DurationMinutes is set only on exit events and is the whole-minute distance
// to the matching entry, never negative.
type ClockEvent struct {
	ID           EventID
	WorkerID     WorkerID
	EmployerID   EmployerID
	EmployerName string // denormalized at creation time

	Kind  EventKind
	UTC   time.Time  // absolute instant, always UTC
	Local LocalStamp // local projection + IANA zone used at creation

	DurationMinutes *int64 // exit only

	IntegrityHash string
	CreatedAt     time.Time
}

// Duration returns the stored duration, or false when absent.
func (e ClockEvent) Duration() (int64, bool) {
	if e.DurationMinutes == nil {
		return 0, false
	}
	return *e.DurationMinutes, true
}

// =============================================================================
// DAILY BREAKDOWN - Derived view of one local calendar day
// =============================================================================

// DailyBreakdown summarizes one worker's local calendar day at one employer.
// Derived on demand; never persisted by this engine.
type DailyBreakdown struct {
	Date Date

	FirstEntry *time.Time // UTC
	LastExit   *time.Time // UTC

	WorkedMinutes int64
	PauseMinutes  int64
	PauseCount    int

	RecordCount int
	SessionOpen bool // day ends with an unmatched entry
}

// =============================================================================
// MONTHLY SUMMARY - Derived view of one (worker, employer, year, month)
// =============================================================================

type MonthlySummary struct {
	WorkerID     WorkerID
	EmployerID   EmployerID
	EmployerName string
	Year         int
	Month        time.Month

	Days []DailyBreakdown // ascending by date

	DaysWorked         int
	TotalWorkedMinutes int64
	TotalPauseMinutes  int64
	HasOpenSession     bool

	GeneratedAt time.Time
}

// WorkedHours returns the total worked time in hours, rounded to 2 places.
func (s MonthlySummary) WorkedHours() decimal.Decimal {
	return MinutesToHours(s.TotalWorkedMinutes)
}

// MinutesToHours converts whole minutes to hours rounded to 2 decimal places.
func MinutesToHours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Round(2)
}

// =============================================================================
// OVERTIME FINDING
// =============================================================================

type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodMonth PeriodKind = "month"
)

// Period identifies what an overtime finding covers: a single local day or
// a whole month.
type Period struct {
	Kind  PeriodKind
	Date  Date       // set when Kind == PeriodDay
	Year  int        // set when Kind == PeriodMonth
	Month time.Month // set when Kind == PeriodMonth
}

func (p Period) String() string {
	if p.Kind == PeriodDay {
		return p.Date.String()
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

type Severity string

const (
	SeverityMinor    Severity = "minor"    // less than 1h excess
	SeverityModerate Severity = "moderate" // 1h to 2h excess
	SeveritySevere   Severity = "severe"   // 2h or more excess
)

// OvertimeFinding reports actual time above the expected threshold for one
// period. Findings are pure computations; nothing is persisted.
type OvertimeFinding struct {
	WorkerID        WorkerID
	EmployerID      EmployerID
	Period          Period
	ExpectedMinutes int64
	ActualMinutes   int64
	ExcessMinutes   int64 // always > 0 in an emitted finding
	Severity        Severity
}

// =============================================================================
// MONTHLY SIGNATURE
// =============================================================================

// MonthlySignature is a worker's one-time attestation that a month's summary
// at one employer is acknowledged as accurate. Unique per
// (worker, employer, year, month); the store enforces this atomically.
type MonthlySignature struct {
	ID         SignatureID
	WorkerID   WorkerID
	EmployerID EmployerID
	Year       int
	Month      time.Month
	SignedAt   time.Time // UTC
}

// SignatureState classifies a month in a signature status report.
type SignatureState string

const (
	SignaturePending SignatureState = "pending"
	SignatureSigned  SignatureState = "signed"
)

// MonthSignatureStatus is one month's line in a signature status report.
type MonthSignatureStatus struct {
	Year     int
	Month    time.Month
	State    SignatureState
	SignedAt *time.Time // set when State == SignatureSigned
}
