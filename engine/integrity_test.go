package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clockd/attendance-engine/engine"
	"github.com/clockd/attendance-engine/engine/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func sampleExitEvent() engine.ClockEvent {
	duration := int64(240)
	return engine.ClockEvent{
		ID:              "ev-1",
		WorkerID:        "w-1",
		EmployerID:      "emp-a",
		EmployerName:    "Acme",
		Kind:            engine.KindExit,
		UTC:             time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC),
		DurationMinutes: &duration,
	}
}

// =============================================================================
// RECORD HASH TESTS
// =============================================================================

func TestHashRecord_Deterministic(t *testing.T) {
	// GIVEN: Two events with identical canonical fields
	// WHEN: Hashing both
	// THEN: Digests are identical, 64 lowercase hex characters

	a := sampleExitEvent()
	b := sampleExitEvent()

	ha := engine.HashRecord(a)
	hb := engine.HashRecord(b)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", ha)
}

func TestHashRecord_SensitiveToEveryCanonicalField(t *testing.T) {
	// GIVEN: A baseline event
	// WHEN: Mutating one canonical field at a time
	// THEN: Each mutation produces a different digest

	base := engine.HashRecord(sampleExitEvent())

	mutations := map[string]func(*engine.ClockEvent){
		"worker":   func(ev *engine.ClockEvent) { ev.WorkerID = "w-2" },
		"employer": func(ev *engine.ClockEvent) { ev.EmployerID = "emp-b" },
		"kind":     func(ev *engine.ClockEvent) { ev.Kind = engine.KindEntry },
		"instant":  func(ev *engine.ClockEvent) { ev.UTC = ev.UTC.Add(time.Minute) },
		"duration": func(ev *engine.ClockEvent) { d := int64(241); ev.DurationMinutes = &d },
	}

	for name, mutate := range mutations {
		ev := sampleExitEvent()
		mutate(&ev)
		assert.NotEqual(t, base, engine.HashRecord(ev), "mutating %s must change the digest", name)
	}
}

func TestHashRecord_IgnoresNonCanonicalFields(t *testing.T) {
	// The employer display name and storage metadata are deliberately outside
	// the canonical field list.

	base := engine.HashRecord(sampleExitEvent())

	ev := sampleExitEvent()
	ev.EmployerName = "Acme Renamed Inc"
	ev.CreatedAt = time.Now()
	ev.Local = engine.LocalStamp{Time: ev.UTC, Zone: "Europe/Madrid"}

	assert.Equal(t, base, engine.HashRecord(ev))
}

func TestHashRecord_SubSecondPrecisionIgnored(t *testing.T) {
	a := sampleExitEvent()
	b := sampleExitEvent()
	b.UTC = b.UTC.Add(500 * time.Millisecond)

	assert.Equal(t, engine.HashRecord(a), engine.HashRecord(b))
}

// =============================================================================
// VERIFICATION TESTS
// =============================================================================

func TestVerifyRecord_Match(t *testing.T) {
	ev := sampleExitEvent()
	ev.IntegrityHash = engine.HashRecord(ev)

	assert.NoError(t, engine.VerifyRecord(ev))
}

func TestVerifyRecord_Mismatch(t *testing.T) {
	// GIVEN: An event whose stored hash no longer matches its fields
	// WHEN: Verifying
	// THEN: IntegrityViolationError carrying both hashes

	ev := sampleExitEvent()
	ev.IntegrityHash = engine.HashRecord(ev)
	ev.WorkerID = "w-tampered"

	err := engine.VerifyRecord(ev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrIntegrityViolation))

	var violation *engine.IntegrityViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, ev.IntegrityHash, violation.StoredHash)
	assert.NotEqual(t, violation.StoredHash, violation.ComputedHash)
}

func TestVerifiedByID_SurfacesTampering(t *testing.T) {
	// GIVEN: A stored event whose hash was computed for different content
	// WHEN: Reading it through the verifying path
	// THEN: The event is returned together with the violation

	mem := store.NewMemory()
	ledger := engine.NewEventLedger(mem)
	ctx := context.Background()

	ev := sampleExitEvent()
	ev.IntegrityHash = "0000000000000000000000000000000000000000000000000000000000000000"
	require.NoError(t, ledger.Append(ctx, ev))

	got, err := ledger.VerifiedByID(ctx, ev.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrIntegrityViolation))
	require.NotNil(t, got)
	assert.Equal(t, ev.ID, got.ID)
}

// =============================================================================
// REPORT DIGEST TESTS
// =============================================================================

func TestHashReport_StableForEqualPayloads(t *testing.T) {
	type payload struct {
		Worker string `json:"worker"`
		Total  int64  `json:"total"`
	}

	a, err := engine.HashReport(payload{Worker: "w-1", Total: 480})
	require.NoError(t, err)
	b, err := engine.HashReport(payload{Worker: "w-1", Total: 480})
	require.NoError(t, err)
	c, err := engine.HashReport(payload{Worker: "w-1", Total: 481})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
