package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockd/attendance-engine/engine"
	"github.com/clockd/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(id string, worker engine.WorkerID, employer engine.EmployerID, kind engine.EventKind, at time.Time, duration *int64) engine.ClockEvent {
	ev := engine.ClockEvent{
		ID:              engine.EventID(id),
		WorkerID:        worker,
		EmployerID:      employer,
		EmployerName:    "Acme",
		Kind:            kind,
		UTC:             at.UTC().Truncate(time.Second),
		DurationMinutes: duration,
		CreatedAt:       at.UTC().Truncate(time.Second),
	}
	ev.Local = engine.LocalStamp{Time: ev.UTC, Zone: "UTC"}
	ev.IntegrityHash = engine.HashRecord(ev)
	return ev
}

func utc(day, hour, min int) time.Time {
	return time.Date(2025, time.March, day, hour, min, 0, 0, time.UTC)
}

// =============================================================================
// EVENT TESTS
// =============================================================================

func TestStore_AppendAndFetchByID(t *testing.T) {
	// GIVEN: An exit event with all fields populated
	// WHEN: Appending and reading it back
	// THEN: Every persisted field survives the roundtrip

	store := newTestStore(t)
	ctx := context.Background()

	duration := int64(240)
	ev := testEvent("ev-1", "w-1", "emp-a", engine.KindExit, utc(10, 17, 0), &duration)
	require.NoError(t, store.AppendEvent(ctx, ev))

	got, err := store.EventByID(ctx, "ev-1")
	require.NoError(t, err)

	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.WorkerID, got.WorkerID)
	assert.Equal(t, ev.EmployerID, got.EmployerID)
	assert.Equal(t, ev.EmployerName, got.EmployerName)
	assert.Equal(t, ev.Kind, got.Kind)
	assert.True(t, got.UTC.Equal(ev.UTC))
	assert.Equal(t, "UTC", got.Local.Zone)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, int64(240), *got.DurationMinutes)
	assert.Equal(t, ev.IntegrityHash, got.IntegrityHash)

	// The stored hash still verifies after the roundtrip.
	assert.NoError(t, engine.VerifyRecord(*got))
}

func TestStore_EventByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.EventByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestStore_LatestEvent_AcrossEmployers(t *testing.T) {
	// GIVEN: Events at two employers
	// WHEN: Asking for the worker's latest event anywhere
	// THEN: The most recent wins regardless of employer

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-1", "w-1", "emp-a", engine.KindEntry, utc(10, 9, 0), nil)))
	d := int64(240)
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-2", "w-1", "emp-a", engine.KindExit, utc(10, 13, 0), &d)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-3", "w-1", "emp-b", engine.KindEntry, utc(10, 15, 0), nil)))

	latest, err := store.LatestEvent(ctx, "w-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, engine.EventID("ev-3"), latest.ID)

	latestAtA, err := store.LatestEventAt(ctx, "w-1", "emp-a")
	require.NoError(t, err)
	require.NotNil(t, latestAtA)
	assert.Equal(t, engine.EventID("ev-2"), latestAtA.ID)
}

func TestStore_LatestEvent_NoneIsNil(t *testing.T) {
	store := newTestStore(t)

	latest, err := store.LatestEvent(context.Background(), "w-ghost")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_EventsInRange_HalfOpen(t *testing.T) {
	// GIVEN: Events at 09:00, 12:00 and 15:00
	// WHEN: Querying [09:00, 15:00)
	// THEN: The range start is inclusive, the end exclusive, order ascending

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-1", "w-1", "emp-a", engine.KindEntry, utc(10, 9, 0), nil)))
	d := int64(180)
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-2", "w-1", "emp-a", engine.KindExit, utc(10, 12, 0), &d)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-3", "w-1", "emp-a", engine.KindEntry, utc(10, 15, 0), nil)))

	events, err := store.EventsInRange(ctx, "w-1", "emp-a", utc(10, 9, 0), utc(10, 15, 0))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, engine.EventID("ev-1"), events[0].ID)
	assert.Equal(t, engine.EventID("ev-2"), events[1].ID)
}

func TestStore_MonthsWithEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-1", "w-1", "emp-a", engine.KindEntry,
		time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC), nil)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-2", "w-1", "emp-a", engine.KindEntry,
		time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), nil)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-3", "w-1", "emp-b", engine.KindEntry,
		time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC), nil)))

	months, err := store.MonthsWithEvents(ctx, "w-1", "emp-a",
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// January is before the cutoff, February belongs to emp-b.
	require.Len(t, months, 1)
	assert.Equal(t, engine.YearMonth{Year: 2025, Month: time.March}, months[0])
}

func TestStore_WorkersWithEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-1", "w-2", "emp-a", engine.KindEntry, utc(10, 9, 0), nil)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-2", "w-1", "emp-a", engine.KindEntry, utc(11, 9, 0), nil)))
	require.NoError(t, store.AppendEvent(ctx, testEvent("ev-3", "w-3", "emp-b", engine.KindEntry, utc(12, 9, 0), nil)))

	workers, err := store.WorkersWithEvents(ctx, "emp-a", utc(1, 0, 0), utc(31, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, []engine.WorkerID{"w-1", "w-2"}, workers)
}

// =============================================================================
// SIGNATURE TESTS
// =============================================================================

func TestStore_InsertSignature_DuplicateKeyRejected(t *testing.T) {
	// GIVEN: A signed (worker, employer, year, month)
	// WHEN: Inserting a second signature for the same key
	// THEN: AlreadySignedError carrying the original signing time

	store := newTestStore(t)
	ctx := context.Background()

	first := engine.MonthlySignature{
		ID: "sig-1", WorkerID: "w-1", EmployerID: "emp-a",
		Year: 2025, Month: time.February,
		SignedAt: time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.InsertSignature(ctx, first))

	second := first
	second.ID = "sig-2"
	second.SignedAt = second.SignedAt.Add(time.Hour)

	err := store.InsertSignature(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrAlreadySigned))

	var already *engine.AlreadySignedError
	require.ErrorAs(t, err, &already)
	assert.True(t, already.SignedAt.Equal(first.SignedAt))

	// A different month for the same worker still inserts fine.
	third := first
	third.ID = "sig-3"
	third.Month = time.March
	assert.NoError(t, store.InsertSignature(ctx, third))
}

func TestStore_GetSignature_AbsentIsNil(t *testing.T) {
	store := newTestStore(t)

	sig, err := store.GetSignature(context.Background(), "w-1", "emp-a", 2025, time.February)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestStore_SignaturesSince_OrderedByMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, ym := range []engine.YearMonth{
		{Year: 2025, Month: time.March},
		{Year: 2024, Month: time.November},
		{Year: 2025, Month: time.January},
	} {
		require.NoError(t, store.InsertSignature(ctx, engine.MonthlySignature{
			ID:       engine.SignatureID(string(rune('a' + i))),
			WorkerID: "w-1", EmployerID: "emp-a",
			Year: ym.Year, Month: ym.Month,
			SignedAt: time.Now().UTC(),
		}))
	}

	sigs, err := store.SignaturesSince(ctx, "w-1", "emp-a", 2024)
	require.NoError(t, err)

	require.Len(t, sigs, 3)
	assert.Equal(t, time.November, sigs[0].Month)
	assert.Equal(t, time.January, sigs[1].Month)
	assert.Equal(t, time.March, sigs[2].Month)

	recent, err := store.SignaturesSince(ctx, "w-1", "emp-a", 2025)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
