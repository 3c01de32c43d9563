// Package journal is the append-only SQLite record of job and target
// outcomes. It stores no plaintext, no passphrase material and no file
// content, only paths, states and error kinds.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// JobRecord is one orchestration run.
type JobRecord struct {
	ID          string
	Action      string
	Status      string
	Targets     int
	CreatedAt   time.Time
	CompletedAt time.Time
}

// TargetRecord is the outcome of one target inside a job.
type TargetRecord struct {
	JobID       string
	Path        string
	State       string
	ErrorKind   string
	Detail      string
	Artifact    string
	CompletedAt time.Time
}

// Journal wraps the outcome database.
type Journal struct {
	db *sql.DB
}

// Open opens (and creates if needed) the journal database at path and
// ensures required tables exist.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS job_log (
  id           TEXT PRIMARY KEY,
  action       TEXT NOT NULL,
  status       TEXT NOT NULL,
  targets      INTEGER NOT NULL,
  created_at   TEXT NOT NULL,
  completed_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS target_log (
  job_id       TEXT NOT NULL REFERENCES job_log(id),
  path         TEXT NOT NULL,
  state        TEXT NOT NULL,
  error_kind   TEXT,
  detail       TEXT,
  artifact     TEXT,
  completed_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS job_log_created_at_idx ON job_log(created_at);`,
		`CREATE INDEX IF NOT EXISTS target_log_job_id_idx ON target_log(job_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap journal: %w", err)
		}
	}
	return nil
}

// AppendJob records a finished job and its per-target outcomes in one
// transaction.
func (j *Journal) AppendJob(ctx context.Context, job JobRecord, targets []TargetRecord) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO job_log (id, action, status, targets, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.Action, job.Status, job.Targets,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.CompletedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append job record: %w", err)
	}

	for _, t := range targets {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO target_log (job_id, path, state, error_kind, detail, artifact, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID, t.Path, t.State, t.ErrorKind, t.Detail, t.Artifact,
			t.CompletedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("append target record: %w", err)
		}
	}
	return tx.Commit()
}

// RecentJobs returns up to limit jobs, newest first.
func (j *Journal) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, action, status, targets, created_at, completed_at
		 FROM job_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var rec JobRecord
		var created, completed string
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.Status, &rec.Targets, &created, &completed); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// JobTargets returns the per-target outcomes of one job.
func (j *Journal) JobTargets(ctx context.Context, jobID string) ([]TargetRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT job_id, path, state, error_kind, detail, artifact, completed_at
		 FROM target_log WHERE job_id = ? ORDER BY completed_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query job targets: %w", err)
	}
	defer rows.Close()

	var out []TargetRecord
	for rows.Next() {
		var rec TargetRecord
		var errorKind, detail, artifact sql.NullString
		var completed string
		if err := rows.Scan(&rec.JobID, &rec.Path, &rec.State, &errorKind, &detail, &artifact, &completed); err != nil {
			return nil, fmt.Errorf("scan target record: %w", err)
		}
		rec.ErrorKind = errorKind.String
		rec.Detail = detail.String
		rec.Artifact = artifact.String
		rec.CompletedAt, _ = time.Parse(time.RFC3339Nano, completed)
		out = append(out, rec)
	}
	return out, rows.Err()
}
