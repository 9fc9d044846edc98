/*
store.go - Persistence interface for clock events and signatures

PURPOSE:
  Defines the boundary between the engine and whatever database backs it.
  The engine performs no I/O of its own; every fetch and persist goes
  through this interface. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

APPEND-ONLY CONTRACT:
  Clock events are immutable. The interface exposes AppendEvent and reads;
  no Update or Delete exists. Soft deletion, if any, belongs to the
  persistence collaborator's own lifecycle outside this engine.

ATOMIC SIGNATURE INSERT:
  InsertSignature must be insert-iff-absent for the
  (worker, employer, year, month) key, enforced at the storage level
  (unique index). Two racing sign attempts must yield exactly one row;
  the loser gets ErrAlreadySigned.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - engine/store:  In-memory store for tests and development

SEE ALSO:
  - ledger.go: Higher-level event ledger using Store
  - signature.go: Signature ledger using Store
*/
package engine

import (
	"context"
	"time"
)

// Store handles persistence of clock events and monthly signatures.
type Store interface {
	// AppendEvent persists a clock event. Events are append-only.
	AppendEvent(ctx context.Context, ev ClockEvent) error

	// LatestEvent returns the most recent event for a worker across ALL
	// employers, or nil when the worker has no events. The state machine
	// depends on the cross-employer scope to detect conflicting sessions.
	LatestEvent(ctx context.Context, worker WorkerID) (*ClockEvent, error)

	// LatestEventAt returns the most recent event for a worker at one
	// employer, or nil.
	LatestEventAt(ctx context.Context, worker WorkerID, employer EmployerID) (*ClockEvent, error)

	// EventsInRange returns a worker's events at one employer with
	// fromUTC <= UTC < toUTC, ordered by UTC ascending.
	EventsInRange(ctx context.Context, worker WorkerID, employer EmployerID, fromUTC, toUTC time.Time) ([]ClockEvent, error)

	// EventByID returns a single event or a NotFoundError.
	EventByID(ctx context.Context, id EventID) (*ClockEvent, error)

	// MonthsWithEvents returns the distinct UTC calendar months, on or after
	// sinceUTC, in which the worker has events at the employer.
	MonthsWithEvents(ctx context.Context, worker WorkerID, employer EmployerID, sinceUTC time.Time) ([]YearMonth, error)

	// WorkersWithEvents returns the distinct workers with at least one event
	// at the employer in [fromUTC, toUTC), in stable (sorted) order. Employer
	// reports derive their worker list from this; the engine owns no worker
	// directory.
	WorkersWithEvents(ctx context.Context, employer EmployerID, fromUTC, toUTC time.Time) ([]WorkerID, error)

	// InsertSignature persists a signature iff none exists for its
	// (worker, employer, year, month) key. A duplicate fails with an
	// AlreadySignedError. The check-and-insert must be atomic.
	InsertSignature(ctx context.Context, sig MonthlySignature) error

	// GetSignature returns the signature for a key, or nil when unsigned.
	GetSignature(ctx context.Context, worker WorkerID, employer EmployerID, year int, month time.Month) (*MonthlySignature, error)

	// SignaturesSince returns all of a worker's signatures at an employer
	// with Year >= sinceYear.
	SignaturesSince(ctx context.Context, worker WorkerID, employer EmployerID, sinceYear int) ([]MonthlySignature, error)
}
