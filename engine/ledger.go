/*
ledger.go - Append-only clock event ledger

PURPOSE:
  The Ledger is the source of truth for raw attendance events. Every
  entry and exit is recorded here exactly once and never modified.
  Summaries are always recomputed by replaying events - there is no
  stored "worked minutes" field that can drift out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, events cannot be modified.
  3. HASHED: Every event carries its integrity hash at creation time.

WHY APPEND-ONLY?
  - Compliance: Labour-inspection reports must be reconstructible
  - Tamper evidence: The integrity hash only means something if the
    hashed fields are write-once
  - Debugging: "Why does the summary say X?" → replay the events

SEE ALSO:
  - store.go: Low-level persistence interface
  - clock.go: The state machine that produces events
  - integrity.go: Hash computation and verification
*/
package engine

import (
	"context"
	"fmt"
	"time"
)

// EventLedger mediates all event reads and writes. It owns the append-only
// discipline; the Store underneath just persists.
type EventLedger struct {
	store Store
}

func NewEventLedger(store Store) *EventLedger {
	return &EventLedger{store: store}
}

// Append persists a fully-formed clock event. Events must arrive complete:
// the state machine assigns ID, kind, duration, and integrity hash before
// anything touches storage.
func (l *EventLedger) Append(ctx context.Context, ev ClockEvent) error {
	if ev.ID == "" || ev.WorkerID == "" || ev.EmployerID == "" {
		return fmt.Errorf("incomplete event: id=%q worker=%q employer=%q",
			ev.ID, ev.WorkerID, ev.EmployerID)
	}
	if ev.IntegrityHash == "" {
		return fmt.Errorf("event %s has no integrity hash", ev.ID)
	}
	return l.store.AppendEvent(ctx, ev)
}

// Latest returns the worker's most recent event across all employers.
func (l *EventLedger) Latest(ctx context.Context, worker WorkerID) (*ClockEvent, error) {
	return l.store.LatestEvent(ctx, worker)
}

// LatestAt returns the worker's most recent event at one employer.
func (l *EventLedger) LatestAt(ctx context.Context, worker WorkerID, employer EmployerID) (*ClockEvent, error) {
	return l.store.LatestEventAt(ctx, worker, employer)
}

// InRange returns events in [fromUTC, toUTC), ascending.
func (l *EventLedger) InRange(ctx context.Context, worker WorkerID, employer EmployerID, fromUTC, toUTC time.Time) ([]ClockEvent, error) {
	return l.store.EventsInRange(ctx, worker, employer, fromUTC, toUTC)
}

// Month returns the worker's events at one employer for the local calendar
// month in the given zone.
func (l *EventLedger) Month(ctx context.Context, worker WorkerID, employer EmployerID, year int, month time.Month, zone string) ([]ClockEvent, error) {
	start, end, err := MonthWindow(year, month, zone)
	if err != nil {
		return nil, err
	}
	return l.store.EventsInRange(ctx, worker, employer, start, end)
}

// WorkersAt returns the distinct workers with events at the employer during
// the local calendar month.
func (l *EventLedger) WorkersAt(ctx context.Context, employer EmployerID, year int, month time.Month, zone string) ([]WorkerID, error) {
	start, end, err := MonthWindow(year, month, zone)
	if err != nil {
		return nil, err
	}
	return l.store.WorkersWithEvents(ctx, employer, start, end)
}

// VerifiedByID fetches an event and checks its stored hash against a fresh
// computation. A mismatch is surfaced as an IntegrityViolationError, never
// repaired.
func (l *EventLedger) VerifiedByID(ctx context.Context, id EventID) (*ClockEvent, error) {
	ev, err := l.store.EventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := VerifyRecord(*ev); err != nil {
		return ev, err
	}
	return ev, nil
}
