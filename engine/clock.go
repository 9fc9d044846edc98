/*
clock.go - The attendance state machine

PURPOSE:
  Decides whether a clock action is an entry or an exit, computes exit
  durations, and rejects concurrent open sessions across employers. This
  is the only writer of clock events.

STATE TRANSITIONS (keyed on the worker's most recent event anywhere):
  none / exit          → new event is an ENTRY (no duration)
  entry @ other employer → ConflictingSession (the critical invariant)
  entry @ same employer  → new event is an EXIT; duration = whole minutes
                           since the entry, InvalidDuration if negative

SERIALIZATION:
  The read-then-write sequence (fetch last event, decide kind, persist) is
  not atomic on its own. The Recorder serializes clock actions per worker
  with a keyed mutex so two near-simultaneous actions cannot both observe
  "no open session" and create one each. Different workers proceed
  independently. Aggregation reads need no lock; reports are point-in-time.

SEE ALSO:
  - ledger.go: Event persistence
  - integrity.go: Hash computed before the event is persisted
*/
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder is the attendance state machine. Stateless between calls except
// for the per-worker locks; all event state lives in the ledger.
type Recorder struct {
	ledger      *EventLedger
	defaultZone string

	mu    sync.Mutex
	locks map[WorkerID]*sync.Mutex

	now func() time.Time
}

func NewRecorder(ledger *EventLedger, defaultZone string) *Recorder {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &Recorder{
		ledger:      ledger,
		defaultZone: defaultZone,
		locks:       make(map[WorkerID]*sync.Mutex),
		now:         time.Now,
	}
}

// workerLock returns the mutex serializing clock actions for one worker.
func (r *Recorder) workerLock(worker WorkerID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[worker]
	if !ok {
		l = &sync.Mutex{}
		r.locks[worker] = l
	}
	return l
}

// RecordEvent validates and persists one clock action at the given instant.
// The event kind is decided by the state machine, never by the caller.
// An empty zone falls back to the configured default.
func (r *Recorder) RecordEvent(ctx context.Context, worker WorkerID, employer EmployerID, employerName string, at time.Time, zone string) (*ClockEvent, error) {
	if zone == "" {
		zone = r.defaultZone
	}

	atUTC := at.UTC().Truncate(time.Second)
	local, err := Localize(atUTC, zone)
	if err != nil {
		return nil, err
	}

	lock := r.workerLock(worker)
	lock.Lock()
	defer lock.Unlock()

	last, err := r.ledger.Latest(ctx, worker)
	if err != nil {
		return nil, err
	}

	ev := ClockEvent{
		ID:           EventID(uuid.NewString()),
		WorkerID:     worker,
		EmployerID:   employer,
		EmployerName: employerName,
		UTC:          atUTC,
		Local:        local,
		CreatedAt:    r.now().UTC(),
	}

	switch {
	case last == nil || last.Kind == KindExit:
		ev.Kind = KindEntry

	case last.EmployerID != employer:
		// Open session elsewhere. A worker can never be clocked in at two
		// employers at once.
		return nil, &ConflictingSessionError{
			WorkerID:    worker,
			RequestedAt: employer,
			OpenAt:      last.EmployerID,
			OpenAtName:  last.EmployerName,
			OpenSince:   last.UTC,
			OpenEventID: last.ID,
		}

	default:
		minutes, err := WholeMinutesBetween(last.UTC, atUTC)
		if err != nil {
			return nil, err
		}
		ev.Kind = KindExit
		ev.DurationMinutes = &minutes
	}

	ev.IntegrityHash = HashRecord(ev)

	if err := r.ledger.Append(ctx, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// =============================================================================
// CURRENT STATUS - Live view of a worker's session at one employer
// =============================================================================

type WorkerState string

const (
	StateClockedOut WorkerState = "clocked_out"
	StateClockedIn  WorkerState = "clocked_in"
)

// CurrentStatus describes a worker's live session at one employer.
type CurrentStatus struct {
	WorkerID   WorkerID
	EmployerID EmployerID
	State      WorkerState

	EntryTime     *time.Time // set when clocked in
	WorkedMinutes *int64     // minutes since entry, when clocked in
}

// Status reports whether the worker is currently clocked in at the employer
// and, if so, for how long as of the given instant.
func (r *Recorder) Status(ctx context.Context, worker WorkerID, employer EmployerID, asOf time.Time) (*CurrentStatus, error) {
	last, err := r.ledger.LatestAt(ctx, worker, employer)
	if err != nil {
		return nil, err
	}

	status := &CurrentStatus{WorkerID: worker, EmployerID: employer, State: StateClockedOut}
	if last == nil || last.Kind != KindEntry {
		return status, nil
	}

	minutes, err := WholeMinutesBetween(last.UTC, asOf.UTC())
	if err != nil {
		return nil, err
	}
	entry := last.UTC
	status.State = StateClockedIn
	status.EntryTime = &entry
	status.WorkedMinutes = &minutes
	return status, nil
}
