// Package store provides engine.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clockd/attendance-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	events     map[engine.WorkerID][]engine.ClockEvent // sorted by UTC asc
	byID       map[engine.EventID]engine.ClockEvent
	signatures map[sigKey]engine.MonthlySignature
}

type sigKey struct {
	Worker   engine.WorkerID
	Employer engine.EmployerID
	Year     int
	Month    time.Month
}

func NewMemory() *Memory {
	return &Memory{
		events:     make(map[engine.WorkerID][]engine.ClockEvent),
		byID:       make(map[engine.EventID]engine.ClockEvent),
		signatures: make(map[sigKey]engine.MonthlySignature),
	}
}

// AppendEvent adds a single event. Append-only.
func (m *Memory) AppendEvent(_ context.Context, ev engine.ClockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evs := m.events[ev.WorkerID]

	// Binary search for the insertion point keeps the slice sorted by UTC.
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].UTC.After(ev.UTC)
	})
	evs = append(evs, engine.ClockEvent{})
	copy(evs[i+1:], evs[i:])
	evs[i] = ev
	m.events[ev.WorkerID] = evs

	m.byID[ev.ID] = ev
	return nil
}

func (m *Memory) LatestEvent(_ context.Context, worker engine.WorkerID) (*engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[worker]
	if len(evs) == 0 {
		return nil, nil
	}
	ev := evs[len(evs)-1]
	return &ev, nil
}

func (m *Memory) LatestEventAt(_ context.Context, worker engine.WorkerID, employer engine.EmployerID) (*engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[worker]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].EmployerID == employer {
			ev := evs[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (m *Memory) EventsInRange(_ context.Context, worker engine.WorkerID, employer engine.EmployerID, fromUTC, toUTC time.Time) ([]engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.ClockEvent
	for _, ev := range m.events[worker] {
		if ev.EmployerID != employer {
			continue
		}
		if ev.UTC.Before(fromUTC) || !ev.UTC.Before(toUTC) {
			continue
		}
		result = append(result, ev)
	}
	return result, nil
}

func (m *Memory) EventByID(_ context.Context, id engine.EventID) (*engine.ClockEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.byID[id]
	if !ok {
		return nil, &engine.NotFoundError{What: "record", ID: string(id)}
	}
	return &ev, nil
}

func (m *Memory) MonthsWithEvents(_ context.Context, worker engine.WorkerID, employer engine.EmployerID, sinceUTC time.Time) ([]engine.YearMonth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[engine.YearMonth]bool)
	for _, ev := range m.events[worker] {
		if ev.EmployerID != employer || ev.UTC.Before(sinceUTC) {
			continue
		}
		seen[engine.YearMonth{Year: ev.UTC.Year(), Month: ev.UTC.Month()}] = true
	}

	months := make([]engine.YearMonth, 0, len(seen))
	for ym := range seen {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months, nil
}

func (m *Memory) WorkersWithEvents(_ context.Context, employer engine.EmployerID, fromUTC, toUTC time.Time) ([]engine.WorkerID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[engine.WorkerID]bool)
	for worker, evs := range m.events {
		for _, ev := range evs {
			if ev.EmployerID != employer || ev.UTC.Before(fromUTC) || !ev.UTC.Before(toUTC) {
				continue
			}
			seen[worker] = true
			break
		}
	}

	workers := make([]engine.WorkerID, 0, len(seen))
	for w := range seen {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i] < workers[j] })
	return workers, nil
}

// InsertSignature is atomic insert-iff-absent: the existence check and the
// write happen under one lock.
func (m *Memory) InsertSignature(_ context.Context, sig engine.MonthlySignature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := sigKey{Worker: sig.WorkerID, Employer: sig.EmployerID, Year: sig.Year, Month: sig.Month}
	if existing, ok := m.signatures[k]; ok {
		return &engine.AlreadySignedError{
			WorkerID:   sig.WorkerID,
			EmployerID: sig.EmployerID,
			Year:       sig.Year,
			Month:      sig.Month,
			SignedAt:   existing.SignedAt,
		}
	}
	m.signatures[k] = sig
	return nil
}

func (m *Memory) GetSignature(_ context.Context, worker engine.WorkerID, employer engine.EmployerID, year int, month time.Month) (*engine.MonthlySignature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sig, ok := m.signatures[sigKey{Worker: worker, Employer: employer, Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	return &sig, nil
}

func (m *Memory) SignaturesSince(_ context.Context, worker engine.WorkerID, employer engine.EmployerID, sinceYear int) ([]engine.MonthlySignature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.MonthlySignature
	for k, sig := range m.signatures {
		if k.Worker != worker || k.Employer != employer || k.Year < sinceYear {
			continue
		}
		result = append(result, sig)
	}
	sort.Slice(result, func(i, j int) bool {
		a := engine.YearMonth{Year: result[i].Year, Month: result[i].Month}
		b := engine.YearMonth{Year: result[j].Year, Month: result[j].Month}
		return a.Before(b)
	})
	return result, nil
}

// Compile-time check that Memory implements engine.Store.
var _ engine.Store = (*Memory)(nil)
