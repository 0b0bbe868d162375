// Package history persists settled naming jobs to a SQLite log.
//
// Every naming job runs in its own short-lived process, so the log is the
// only place their outcomes meet. WAL mode plus a busy timeout lets
// concurrent jobs append while the watch TUI reads.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/timvw/tmux-organize/internal/model"
)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// DB wraps the SQLite job log. Thread-safe within one process; multiple
// OS processes can safely append via WAL mode + busy timeout.
type DB struct {
	db *sql.DB
}

// Open creates or opens the job log at dbPath with WAL mode and busy timeout.
func Open(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("history: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	// WAL mode: allows concurrent readers while writing
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: wal mode: %w", err)
	}

	// Busy timeout: wait up to 5s if another job holds a lock
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: busy timeout: %w", err)
	}

	return &DB{db: db}, nil
}

// Close checkpoints WAL and closes the database.
func (d *DB) Close() error {
	_, _ = d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return d.db.Close()
}

// Migrate creates tables if they don't exist.
func (d *DB) Migrate() error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id          TEXT NOT NULL,
			kind        TEXT NOT NULL,
			target      TEXT NOT NULL,
			session_id  TEXT NOT NULL,
			status      TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			reason      TEXT NOT NULL DEFAULT '',
			provider    TEXT NOT NULL DEFAULT '',
			model       TEXT NOT NULL DEFAULT '',
			cache_hit   INTEGER NOT NULL DEFAULT 0,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("history: create jobs: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_jobs_finished ON jobs(finished_at)
	`); err != nil {
		return fmt.Errorf("history: create index: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("history: set schema version: %w", err)
	}

	return tx.Commit()
}

// Append records a settled job and bumps the change marker that the
// watch TUI polls.
func (d *DB) Append(rec *model.JobRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cacheHit := 0
	if rec.CacheHit {
		cacheHit = 1
	}
	if _, err := tx.Exec(`
		INSERT INTO jobs (
			id, kind, target, session_id, status,
			name, reason, provider, model, cache_hit,
			started_at, finished_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Kind, rec.TargetKey, rec.SessionID, string(rec.Status),
		rec.Name, rec.Reason, rec.Provider, rec.Model, cacheHit,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(), rec.DurationMs,
	); err != nil {
		return fmt.Errorf("history: insert job: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('last_modified', ?)
	`, fmt.Sprintf("%d", time.Now().UnixNano())); err != nil {
		return fmt.Errorf("history: touch: %w", err)
	}

	return tx.Commit()
}

// Recent returns the most recently finished jobs, newest first.
func (d *DB) Recent(limit int) ([]model.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(`
		SELECT id, kind, target, session_id, status,
			name, reason, provider, model, cache_hit,
			started_at, finished_at, duration_ms
		FROM jobs ORDER BY finished_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.JobRecord
	for rows.Next() {
		var rec model.JobRecord
		var status string
		var cacheHit int
		var startedMs, finishedMs int64
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.TargetKey, &rec.SessionID, &status,
			&rec.Name, &rec.Reason, &rec.Provider, &rec.Model, &cacheHit,
			&startedMs, &finishedMs, &rec.DurationMs,
		); err != nil {
			return nil, err
		}
		rec.Status = model.JobStatus(status)
		rec.CacheHit = cacheHit != 0
		rec.StartedAt = time.UnixMilli(startedMs)
		rec.FinishedAt = time.UnixMilli(finishedMs)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// LastModified returns the change marker bumped by Append, or 0 when
// nothing was recorded yet. The watch TUI polls this instead of
// watching the database file.
func (d *DB) LastModified() (int64, error) {
	var value string
	err := d.db.QueryRow(
		"SELECT value FROM metadata WHERE key = 'last_modified'",
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var ts int64
	_, err = fmt.Sscanf(value, "%d", &ts)
	return ts, err
}
