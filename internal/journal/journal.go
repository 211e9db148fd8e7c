// Package journal records sync runs in a local SQLite database.
//
// The journal is an audit trail, not state the engine depends on: it
// stores which fields of which entries were written in which run, never
// the values themselves. `kpsync history` reads it back.
//
// The database lives under the user state directory by default
// (~/.local/state/kpsync/journal.db) and is opened in WAL mode so a
// concurrent `kpsync history` never blocks a running sync.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	syncengine "github.com/jrabinow/kpsync/internal/sync"
)

// Journal wraps the SQLite connection holding run history.
type Journal struct {
	conn *sql.DB
	path string
}

// DefaultPath returns the journal location under the user state dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "kpsync", "journal.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kpsync", "journal.db")
	}
	return filepath.Join(home, ".local", "state", "kpsync", "journal.db")
}

// Open opens (creating if needed) the journal database at path.
// The caller must Close() it when done.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	j := &Journal{conn: conn, path: path}

	if _, err := j.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := j.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := j.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := j.initSchema(); err != nil {
		_ = j.Close()
		return nil, err
	}

	return j, nil
}

// Close closes the journal connection.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}
	err := j.conn.Close()
	j.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// initSchema creates the schema if missing. Idempotent.
func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS changes (
		run_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		database TEXT NOT NULL,
		field TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id);
	`

	if _, err := j.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// RecordRun implements sync.Recorder. The run and its changes are written
// in one transaction.
func (j *Journal) RecordRun(run syncengine.RunRecord) error {
	tx, err := j.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, finished_at, mode, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Mode,
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, c := range run.Changes {
		_, err = tx.Exec(
			`INSERT INTO changes (run_id, identifier, database, field, action) VALUES (?, ?, ?, ?, ?)`,
			run.ID, c.Identifier, c.Database, c.Field, c.Action,
		)
		if err != nil {
			return fmt.Errorf("failed to insert change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal transaction: %w", err)
	}
	return nil
}

// Run is one journaled run with its change count.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string
	Status     string
	Changes    int
}

// RecentRuns returns up to n runs, most recent first.
func (j *Journal) RecentRuns(n int) ([]Run, error) {
	rows, err := j.conn.Query(`
		SELECT r.id, r.started_at, r.finished_at, r.mode, r.status, COUNT(c.run_id)
		FROM runs r
		LEFT JOIN changes c ON c.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Mode, &r.Status, &r.Changes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// RunChanges returns the journaled changes of one run.
func (j *Journal) RunChanges(runID string) ([]syncengine.ChangeRecord, error) {
	rows, err := j.conn.Query(
		`SELECT identifier, database, field, action FROM changes WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []syncengine.ChangeRecord
	for rows.Next() {
		var c syncengine.ChangeRecord
		if err := rows.Scan(&c.Identifier, &c.Database, &c.Field, &c.Action); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate changes: %w", err)
	}
	return changes, nil
}
