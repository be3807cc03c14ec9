// Package ledger keeps a local SQLite record of the jobs reported to Sauce Labs.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one reported job.
type Entry struct {
	RunID      string
	Project    string
	JobID      string
	URL        string
	Passed     bool
	VideoMerge string // skipped, failed or ok; empty when merging was off
	ReportedAt time.Time
}

// Ledger manages the SQLite database of reported jobs
type Ledger struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the ledger at dbPath.
func Open(dbPath string) (*Ledger, error) {
	dir := filepath.Dir(dbPath)
	if err := ensureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite doesn't support concurrent writes well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return l, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.dbPath
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reported_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		project TEXT NOT NULL,
		job_id TEXT NOT NULL,
		url TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		video_merge TEXT,
		reported_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reported_jobs_run ON reported_jobs(run_id, id);
	`

	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Record stores a reported job. A zero ReportedAt is set to now.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ReportedAt.IsZero() {
		e.ReportedAt = time.Now()
	}

	query := `
		INSERT INTO reported_jobs (run_id, project, job_id, url, passed, video_merge, reported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		e.RunID,
		e.Project,
		e.JobID,
		e.URL,
		e.Passed,
		sql.NullString{String: e.VideoMerge, Valid: e.VideoMerge != ""},
		e.ReportedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", e.JobID, err)
	}
	return nil
}

// ListRun returns the jobs of a run in the order they were recorded.
func (l *Ledger) ListRun(ctx context.Context, runID string) ([]Entry, error) {
	query := `
		SELECT run_id, project, job_id, url, passed, video_merge, reported_at
		FROM reported_jobs
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := l.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var videoMerge sql.NullString
		if err := rows.Scan(&e.RunID, &e.Project, &e.JobID, &e.URL, &e.Passed, &videoMerge, &e.ReportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		e.VideoMerge = videoMerge.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
