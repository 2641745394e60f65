// Package store keeps the job history in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lccweb/agentwave/internal/models"
)

// ErrNotFound is returned when a job ID is unknown.
var ErrNotFound = errors.New("job not found")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	status TEXT NOT NULL,
	enqueued_at INTEGER NOT NULL,
	started_at INTEGER,
	finished_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_jobs_enqueued ON jobs(enqueued_at);

CREATE TABLE IF NOT EXISTS job_tasks (
	job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	agent TEXT NOT NULL,
	instruction TEXT NOT NULL,
	status TEXT NOT NULL,
	exit_code INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (job_id, seq)
);
`

// Store is the job history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; the daemon's access is light.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob inserts or replaces a job and its tasks.
func (s *Store) SaveJob(ctx context.Context, job *models.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, prompt, status, enqueued_at, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at`,
		job.ID, job.Prompt, string(job.Status),
		job.EnqueuedAt.UnixMilli(), nullMillis(job.StartedAt), nullMillis(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_tasks WHERE job_id = ?`, job.ID); err != nil {
		return fmt.Errorf("failed to reset job tasks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_tasks (job_id, seq, agent, instruction, status, exit_code)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range job.Tasks {
		if _, err := stmt.ExecContext(ctx, job.ID, i, t.Agent, t.Instruction, string(t.Status), t.ExitCode); err != nil {
			return fmt.Errorf("failed to save task %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	return nil
}

// GetJob loads one job with its tasks.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, status, enqueued_at, started_at, finished_at
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	if err := s.loadTasks(ctx, []*models.Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first, with their tasks.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, status, enqueued_at, started_at, finished_at
		FROM jobs ORDER BY enqueued_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	if err := s.loadTasks(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Prune deletes jobs enqueued more than maxAge ago.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.Exec(`DELETE FROM jobs WHERE enqueued_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *Store) loadTasks(ctx context.Context, jobs []*models.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT agent, instruction, status, exit_code
		FROM job_tasks WHERE job_id = ? ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to prepare task query: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		if err := loadJobTasks(ctx, stmt, job); err != nil {
			return err
		}
	}
	return nil
}

func loadJobTasks(ctx context.Context, stmt *sql.Stmt, job *models.Job) error {
	rows, err := stmt.QueryContext(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	job.Tasks = []*models.JobTask{}
	for rows.Next() {
		var (
			t      models.JobTask
			status string
		)
		if err := rows.Scan(&t.Agent, &t.Instruction, &status, &t.ExitCode); err != nil {
			return fmt.Errorf("failed to scan task: %w", err)
		}
		t.Status = models.TaskStatus(status)
		job.Tasks = append(job.Tasks, &t)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*models.Job, error) {
	var (
		job               models.Job
		status            string
		enqueued          int64
		started, finished sql.NullInt64
	)
	if err := sc.Scan(&job.ID, &job.Prompt, &status, &enqueued, &started, &finished); err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	job.EnqueuedAt = time.UnixMilli(enqueued).UTC()
	job.StartedAt = fromMillis(started)
	job.FinishedAt = fromMillis(finished)
	return &job, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
