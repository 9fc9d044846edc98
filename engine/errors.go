/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The transport layer maps these to precise user-facing responses.

ERROR CATEGORIES:
  1. State machine errors - Conflicting sessions, negative durations
  2. Integrity errors - Stored hash no longer matches record content
  3. Signature errors - Duplicate or premature monthly signatures
  4. Input errors - Unknown timezones, missing records

USAGE:
  Callers match with errors.Is():

    if errors.Is(err, engine.ErrConflictingSession) {
        // 409 with the other employer's name
    }

  Structured variants carry context and Unwrap() to the sentinels.

SEE ALSO:
  - clock.go: Returns ConflictingSessionError / InvalidDurationError
  - integrity.go: Returns IntegrityViolationError
  - signature.go: Returns AlreadySigned / OpenSessionPresent / MonthNotClosed
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConflictingSession is returned when a worker with an open session at
	// one employer tries to clock in at another. This is the critical
	// correctness invariant: at most one open entry per worker, ever.
	ErrConflictingSession = errors.New("conflicting open session at another employer")

	// ErrInvalidDuration is returned when an exit instant precedes the
	// matching entry instant.
	ErrInvalidDuration = errors.New("exit precedes entry")

	// ErrIntegrityViolation is returned when a stored hash does not match the
	// recomputed hash. Never auto-repaired; this is evidence for a human.
	ErrIntegrityViolation = errors.New("integrity hash mismatch")

	// ErrInvalidTimezone is returned for unknown IANA zone names.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrAlreadySigned is returned when a (worker, employer, year, month)
	// signature already exists.
	ErrAlreadySigned = errors.New("month already signed")

	// ErrOpenSessionPresent is returned when signing a month whose summary
	// still contains an unmatched entry.
	ErrOpenSessionPresent = errors.New("open session present in month")

	// ErrMonthNotClosed is returned when policy restricts signing to past
	// months and the target month is still running.
	ErrMonthNotClosed = errors.New("month not closed yet")

	// ErrNotFound is returned for unknown workers, employers, or records.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConflictingSessionError reports which employer holds the open session.
type ConflictingSessionError struct {
	WorkerID    WorkerID
	RequestedAt EmployerID
	OpenAt      EmployerID
	OpenAtName  string
	OpenSince   time.Time
	OpenEventID EventID
}

func (e *ConflictingSessionError) Error() string {
	return fmt.Sprintf("worker %s has an open session at %s since %s",
		e.WorkerID, e.OpenAt, e.OpenSince.Format(time.RFC3339))
}

func (e *ConflictingSessionError) Unwrap() error { return ErrConflictingSession }

// InvalidDurationError reports a negative entry→exit span.
type InvalidDurationError struct {
	Entry time.Time
	Exit  time.Time
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("exit %s precedes entry %s",
		e.Exit.Format(time.RFC3339), e.Entry.Format(time.RFC3339))
}

func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// IntegrityViolationError reports a hash mismatch on a stored record.
type IntegrityViolationError struct {
	EventID      EventID
	StoredHash   string
	ComputedHash string
}

func (e *IntegrityViolationError) Error() string {
	return fmt.Sprintf("record %s failed integrity check: stored=%s computed=%s",
		e.EventID, e.StoredHash, e.ComputedHash)
}

func (e *IntegrityViolationError) Unwrap() error { return ErrIntegrityViolation }

// InvalidTimezoneError reports an unresolvable IANA zone name.
type InvalidTimezoneError struct {
	Zone string
}

func (e *InvalidTimezoneError) Error() string {
	return fmt.Sprintf("invalid timezone %q", e.Zone)
}

func (e *InvalidTimezoneError) Unwrap() error { return ErrInvalidTimezone }

// AlreadySignedError reports the existing signature blocking a new one.
type AlreadySignedError struct {
	WorkerID   WorkerID
	EmployerID EmployerID
	Year       int
	Month      time.Month
	SignedAt   time.Time
}

func (e *AlreadySignedError) Error() string {
	return fmt.Sprintf("month %04d-%02d already signed at %s",
		e.Year, int(e.Month), e.SignedAt.Format(time.RFC3339))
}

func (e *AlreadySignedError) Unwrap() error { return ErrAlreadySigned }

// NotFoundError names the missing thing.
type NotFoundError struct {
	What string // "worker", "employer", "record", "signature"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business-rule rejection, as opposed to an engine/storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrConflictingSession) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidTimezone) ||
		errors.Is(err, ErrAlreadySigned) ||
		errors.Is(err, ErrOpenSessionPresent) ||
		errors.Is(err, ErrMonthNotClosed)
}

// IsConflict returns true for rejections that map to HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflictingSession) ||
		errors.Is(err, ErrAlreadySigned)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
