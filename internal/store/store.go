// Package store provides SQLite-backed persistence for runs: snapshots,
// the historical event stream and run summaries. The engine treats writes
// as best-effort; load/save/list is the whole contract.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides access to the quadflow run database.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a Store and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for concurrent readers; SQLite allows one writer at a time.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'running',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		status TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id, id);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// touchRun upserts the run row, bumping updated_at.
func (s *Store) touchRun(runID, status string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		runID, status, now, now)
	return err
}

// SaveSnapshot stores a snapshot payload for a run. Older snapshots are
// kept; LoadLatestSnapshot always returns the most recent one.
func (s *Store) SaveSnapshot(runID, status string, payload []byte) error {
	if err := s.touchRun(runID, status); err != nil {
		return fmt.Errorf("touch run: %w", err)
	}
	_, err := s.db.Exec(
		`INSERT INTO snapshots (run_id, status, payload, created_at) VALUES (?, ?, ?, ?)`,
		runID, status, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadLatestSnapshot returns the most recent snapshot payload for a run
// and the time it was taken, or nil when the run has none.
func (s *Store) LoadLatestSnapshot(runID string) ([]byte, time.Time, error) {
	var payload []byte
	var at time.Time
	err := s.db.QueryRow(
		`SELECT payload, created_at FROM snapshots WHERE run_id = ? ORDER BY id DESC LIMIT 1`,
		runID).Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}
	return payload, at, nil
}

// EventsSince returns event payloads recorded after a point in time, oldest
// first. Used to catch up on events the latest snapshot missed.
func (s *Store) EventsSince(runID string, since time.Time) ([][]byte, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM events WHERE run_id = ? AND created_at > ? ORDER BY id ASC`,
		runID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("events since: %w", err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}

// ListRuns returns the most recently updated runs.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, status, created_at, updated_at FROM runs ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordEvent appends a raw event payload to a run's history.
func (s *Store) RecordEvent(runID string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, payload, created_at) VALUES (?, ?, ?)`,
		runID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit of the newest event payloads for a run,
// oldest first, so they can be replayed through the router in order.
func (s *Store) RecentEvents(runID string, limit int) ([][]byte, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(`
		SELECT payload FROM (
			SELECT id, payload FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}
