package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"segmux/internal/errs"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is one ledger row.
type Job struct {
	ID           string
	Ref          string
	Title        string
	Output       string
	Tracks       int
	Bytes        int64
	Status       Status
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Elapsed returns the run time, measured to now for running jobs.
func (j Job) Elapsed() time.Duration {
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// Start records a running job.
func (s *Store) Start(ctx context.Context, job Job) error {
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, ref, title, output, tracks, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Ref, job.Title, job.Output, job.Tracks, StatusRunning,
		job.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record job start: %w", err)
	}
	return nil
}

// Finish closes a job. The status is derived from runErr: nil completes,
// cancellation cancels, anything else fails with its classified kind.
func (s *Store) Finish(ctx context.Context, id, output string, bytes int64, runErr error) error {
	status := StatusCompleted
	var kind, message string
	if runErr != nil {
		status = StatusFailed
		kind = errs.Kind(runErr)
		message = runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			status = StatusCancelled
		}
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET output = ?, bytes = ?, status = ?, error_kind = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		output, bytes, status, kind, message, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("record job finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: job %s", errs.ErrNotFound, id)
	}
	return nil
}

// timeLayout has a fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, ref, title, output, tracks, bytes, status, error_kind, error_message, started_at, finished_at`

// List returns up to limit jobs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	query := `SELECT ` + selectColumns + ` FROM jobs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Get returns one job.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: job %s", errs.ErrNotFound, id)
	}
	return job, err
}

// Prune deletes finished jobs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE status != ? AND started_at < ?`,
		StatusRunning, cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job      Job
		status   string
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Ref, &job.Title, &job.Output, &job.Tracks, &job.Bytes,
		&status, &job.ErrorKind, &job.ErrorMessage, &started, &finished); err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		job.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	return job, nil
}
