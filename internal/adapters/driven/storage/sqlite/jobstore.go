package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// jobStore implements driven.JobStore. The compare-and-swap in
// Transition is enforced in SQL with a state-guarded UPDATE, so two
// workers racing for the same job see exactly one winner.
type jobStore struct {
	store *Store
}

var _ driven.JobStore = (*jobStore)(nil)

const jobColumns = "id, kind, payload, state, attempts, max_attempts, last_error, next_run_at, started_at, created_at, updated_at"

// Save creates a new job.
func (s *jobStore) Save(ctx context.Context, job *domain.Job) error {
	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			state = excluded.state,
			attempts = excluded.attempts,
			max_attempts = excluded.max_attempts,
			last_error = excluded.last_error,
			next_run_at = excluded.next_run_at,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at
	`, job.ID, string(job.Kind), string(payloadJSON), string(job.State),
		job.Attempts, job.MaxAttempts, job.LastError,
		timeToNanos(job.NextRunAt), timeToNanos(job.StartedAt),
		job.CreatedAt, job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (s *jobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Transition atomically moves a job out of the expected state. The job
// is read inside a transaction, mutated, validated against the legal
// lifecycle steps, and written back with a state-guarded UPDATE. A
// concurrent transition of the same job loses the guard check and gets
// domain.ErrStateConflict.
func (s *jobStore) Transition(ctx context.Context, id string, from domain.JobState, mutate func(*domain.Job)) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	if job.State != from {
		return fmt.Errorf("%w: job %s is %s, expected %s", domain.ErrStateConflict, id, job.State, from)
	}

	mutate(job)
	if !from.CanTransition(job.State) {
		return fmt.Errorf("%w: job %s cannot move %s -> %s", domain.ErrStateConflict, id, from, job.State)
	}

	payloadJSON, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}
	job.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs SET
			kind = ?,
			payload = ?,
			state = ?,
			attempts = ?,
			max_attempts = ?,
			last_error = ?,
			next_run_at = ?,
			started_at = ?,
			updated_at = ?
		WHERE id = ? AND state = ?
	`, string(job.Kind), string(payloadJSON), string(job.State),
		job.Attempts, job.MaxAttempts, job.LastError,
		timeToNanos(job.NextRunAt), timeToNanos(job.StartedAt),
		job.UpdatedAt, id, string(from))
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %s left %s concurrently", domain.ErrStateConflict, id, from)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Due returns queued jobs whose NextRunAt is at or before now.
func (s *jobStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.Job, error) {
	query := "SELECT " + jobColumns + ` FROM jobs
		WHERE state = ? AND next_run_at <= ?
		ORDER BY next_run_at`
	args := []interface{}{string(domain.JobStateQueued), now.UnixNano()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return s.queryJobs(ctx, query, args...)
}

// ListByState returns jobs in a given state, oldest first.
func (s *jobStore) ListByState(ctx context.Context, state domain.JobState) ([]domain.Job, error) {
	return s.queryJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE state = ? ORDER BY created_at",
		string(state))
}

// StuckRunning returns running jobs whose attempt started before the
// cutoff.
func (s *jobStore) StuckRunning(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	return s.queryJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE state = ? AND started_at < ?",
		string(domain.JobStateRunning), cutoff.UnixNano())
}

// queryJobs runs a job query and scans all results.
func (s *jobStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]domain.Job, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}

	return jobs, nil
}

// scanJob scans one job row via the given Scan function.
// Returns sql.ErrNoRows unwrapped so callers can map it.
func scanJob(scan func(dest ...interface{}) error) (*domain.Job, error) {
	var job domain.Job
	var kind, state, payloadJSON string
	var nextRunAt, startedAt int64
	var createdAt, updatedAt sql.NullTime

	if err := scan(&job.ID, &kind, &payloadJSON, &state, &job.Attempts,
		&job.MaxAttempts, &job.LastError, &nextRunAt, &startedAt,
		&createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Kind = domain.JobKind(kind)
	job.State = domain.JobState(state)
	if err := json.Unmarshal([]byte(payloadJSON), &job.Payload); err != nil {
		return nil, fmt.Errorf("unmarshaling payload: %w", err)
	}
	job.NextRunAt = nanosToTime(nextRunAt)
	job.StartedAt = nanosToTime(startedAt)
	if createdAt.Valid {
		job.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		job.UpdatedAt = updatedAt.Time
	}

	return &job, nil
}

// timeToNanos converts a time to Unix nanoseconds for storage.
// Zero times store as 0 so queued jobs with no backoff are always due.
func timeToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// nanosToTime converts stored Unix nanoseconds back to a time.
func nanosToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
