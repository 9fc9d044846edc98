/*
Package sqlite provides a SQLite-backed implementation of engine.Store.

PURPOSE:
  Implements the persistence collaborator for clock events and monthly
  signatures. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on clock_events
  - No DELETE statements on clock_events
  Records are immutable; the integrity hash depends on it.

KEY TABLES:
  clock_events:        Immutable attendance event ledger
  monthly_signatures:  One row per (worker, employer, year, month)

INDEXES:
  - idx_events_worker_utc: Latest-event lookup (hot path for every clock
    action, scoped to the worker across all employers)
  - idx_events_worker_employer_utc: Range scans for reports
  - idx_unique_signature: UNIQUE on the signature key; this is what makes
    InsertSignature's check-and-insert atomic under races

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so report reads don't
  block clock-action writes.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := engine.NewEventLedger(store)

SEE ALSO:
  - engine/store.go: Interface definition
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/clockd/attendance-engine/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Clock events (append-only ledger)
	CREATE TABLE IF NOT EXISTS clock_events (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		employer_name TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('entry', 'exit')),
		utc TEXT NOT NULL,
		local_time TEXT NOT NULL,
		zone TEXT NOT NULL,
		duration_minutes INTEGER,
		integrity_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_worker_utc
		ON clock_events(worker_id, utc);
	CREATE INDEX IF NOT EXISTS idx_events_worker_employer_utc
		ON clock_events(worker_id, employer_id, utc);

	-- Monthly signatures: exactly one per key. The unique index is the
	-- atomic insert-iff-absent guarantee the signature ledger relies on.
	CREATE TABLE IF NOT EXISTS monthly_signatures (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		signed_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_signature
		ON monthly_signatures(worker_id, employer_id, year, month);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CLOCK EVENTS
// =============================================================================

const eventColumns = `id, worker_id, employer_id, employer_name, kind, utc,
	local_time, zone, duration_minutes, integrity_hash, created_at`

func (s *Store) AppendEvent(ctx context.Context, ev engine.ClockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var duration sql.NullInt64
	if ev.DurationMinutes != nil {
		duration = sql.NullInt64{Int64: *ev.DurationMinutes, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clock_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(ev.ID),
		string(ev.WorkerID),
		string(ev.EmployerID),
		ev.EmployerName,
		string(ev.Kind),
		ev.UTC.UTC().Format(time.RFC3339),
		ev.Local.Time.Format(time.RFC3339),
		ev.Local.Zone,
		duration,
		ev.IntegrityHash,
		ev.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *Store) LatestEvent(ctx context.Context, worker engine.WorkerID) (*engine.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM clock_events
		WHERE worker_id = ?
		ORDER BY utc DESC, created_at DESC LIMIT 1`,
		string(worker))
	return scanOptionalEvent(row)
}

func (s *Store) LatestEventAt(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID) (*engine.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM clock_events
		WHERE worker_id = ? AND employer_id = ?
		ORDER BY utc DESC, created_at DESC LIMIT 1`,
		string(worker), string(employer))
	return scanOptionalEvent(row)
}

func (s *Store) EventsInRange(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID, fromUTC, toUTC time.Time) ([]engine.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM clock_events
		WHERE worker_id = ? AND employer_id = ? AND utc >= ? AND utc < ?
		ORDER BY utc ASC, created_at ASC`,
		string(worker), string(employer),
		fromUTC.UTC().Format(time.RFC3339), toUTC.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []engine.ClockEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) EventByID(ctx context.Context, id engine.EventID) (*engine.ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM clock_events WHERE id = ?`,
		string(id))
	ev, err := scanOptionalEvent(row)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, &engine.NotFoundError{What: "record", ID: string(id)}
	}
	return ev, nil
}

func (s *Store) MonthsWithEvents(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID, sinceUTC time.Time) ([]engine.YearMonth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// utc is RFC3339 text, so year and month sit at fixed offsets.
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT CAST(substr(utc, 1, 4) AS INTEGER),
		                CAST(substr(utc, 6, 2) AS INTEGER)
		FROM clock_events
		WHERE worker_id = ? AND employer_id = ? AND utc >= ?
		ORDER BY 1, 2`,
		string(worker), string(employer), sinceUTC.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	var months []engine.YearMonth
	for rows.Next() {
		var year, month int
		if err := rows.Scan(&year, &month); err != nil {
			return nil, err
		}
		months = append(months, engine.YearMonth{Year: year, Month: time.Month(month)})
	}
	return months, rows.Err()
}

func (s *Store) WorkersWithEvents(ctx context.Context, employer engine.EmployerID, fromUTC, toUTC time.Time) ([]engine.WorkerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT worker_id FROM clock_events
		WHERE employer_id = ? AND utc >= ? AND utc < ?
		ORDER BY worker_id`,
		string(employer),
		fromUTC.UTC().Format(time.RFC3339), toUTC.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	var workers []engine.WorkerID
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		workers = append(workers, engine.WorkerID(w))
	}
	return workers, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (engine.ClockEvent, error) {
	var (
		ev                              engine.ClockEvent
		id, worker, employer, kind      string
		utcStr, localStr, zone, created string
		duration                        sql.NullInt64
	)
	err := row.Scan(&id, &worker, &employer, &ev.EmployerName, &kind,
		&utcStr, &localStr, &zone, &duration, &ev.IntegrityHash, &created)
	if err != nil {
		return engine.ClockEvent{}, err
	}

	ev.ID = engine.EventID(id)
	ev.WorkerID = engine.WorkerID(worker)
	ev.EmployerID = engine.EmployerID(employer)
	ev.Kind = engine.EventKind(kind)

	if ev.UTC, err = time.Parse(time.RFC3339, utcStr); err != nil {
		return engine.ClockEvent{}, fmt.Errorf("parse utc %q: %w", utcStr, err)
	}
	localTime, err := time.Parse(time.RFC3339, localStr)
	if err != nil {
		return engine.ClockEvent{}, fmt.Errorf("parse local %q: %w", localStr, err)
	}
	ev.Local = engine.LocalStamp{Time: localTime, Zone: zone}

	if ev.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return engine.ClockEvent{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if duration.Valid {
		d := duration.Int64
		ev.DurationMinutes = &d
	}
	return ev, nil
}

func scanOptionalEvent(row *sql.Row) (*engine.ClockEvent, error) {
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// =============================================================================
// MONTHLY SIGNATURES
// =============================================================================

// InsertSignature relies on idx_unique_signature for atomicity: the INSERT
// either lands or trips the constraint, never both under a race.
func (s *Store) InsertSignature(ctx context.Context, sig engine.MonthlySignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_signatures (id, worker_id, employer_id, year, month, signed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(sig.ID), string(sig.WorkerID), string(sig.EmployerID),
		sig.Year, int(sig.Month), sig.SignedAt.UTC().Format(time.RFC3339))
	if err == nil {
		return nil
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		signedAt := sig.SignedAt
		if existing, gerr := s.getSignatureLocked(ctx, sig.WorkerID, sig.EmployerID, sig.Year, sig.Month); gerr == nil && existing != nil {
			signedAt = existing.SignedAt
		}
		return &engine.AlreadySignedError{
			WorkerID:   sig.WorkerID,
			EmployerID: sig.EmployerID,
			Year:       sig.Year,
			Month:      sig.Month,
			SignedAt:   signedAt,
		}
	}
	return fmt.Errorf("insert signature: %w", err)
}

func (s *Store) GetSignature(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID, year int, month time.Month) (*engine.MonthlySignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSignatureLocked(ctx, worker, employer, year, month)
}

func (s *Store) getSignatureLocked(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID, year int, month time.Month) (*engine.MonthlySignature, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, worker_id, employer_id, year, month, signed_at
		FROM monthly_signatures
		WHERE worker_id = ? AND employer_id = ? AND year = ? AND month = ?`,
		string(worker), string(employer), year, int(month))

	sig, err := scanSignature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (s *Store) SignaturesSince(ctx context.Context, worker engine.WorkerID, employer engine.EmployerID, sinceYear int) ([]engine.MonthlySignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, worker_id, employer_id, year, month, signed_at
		FROM monthly_signatures
		WHERE worker_id = ? AND employer_id = ? AND year >= ?
		ORDER BY year, month`,
		string(worker), string(employer), sinceYear)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	var sigs []engine.MonthlySignature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

func scanSignature(row rowScanner) (engine.MonthlySignature, error) {
	var (
		sig                  engine.MonthlySignature
		id, worker, employer string
		month                int
		signedAt             string
	)
	if err := row.Scan(&id, &worker, &employer, &sig.Year, &month, &signedAt); err != nil {
		return engine.MonthlySignature{}, err
	}
	sig.ID = engine.SignatureID(id)
	sig.WorkerID = engine.WorkerID(worker)
	sig.EmployerID = engine.EmployerID(employer)
	sig.Month = time.Month(month)

	t, err := time.Parse(time.RFC3339, signedAt)
	if err != nil {
		return engine.MonthlySignature{}, fmt.Errorf("parse signed_at %q: %w", signedAt, err)
	}
	sig.SignedAt = t
	return sig, nil
}

// Compile-time check that Store implements engine.Store.
var _ engine.Store = (*Store)(nil)
