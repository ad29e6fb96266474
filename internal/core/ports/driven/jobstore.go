package driven

import (
	"context"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// JobStore persists job lifecycle state. Transitions are atomic per job:
// no two workers may move the same job at once, which Transition enforces
// with a compare-and-swap on the expected state.
type JobStore interface {
	// Save creates a new job.
	Save(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// Transition atomically moves a job out of the expected state,
	// applying mutate to the stored job before writing. Returns
	// domain.ErrStateConflict if the job is no longer in from.
	// The mutate function must set the new state.
	Transition(ctx context.Context, id string, from domain.JobState, mutate func(*domain.Job)) error

	// Due returns queued jobs whose NextRunAt is at or before now,
	// oldest first, up to limit.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.Job, error)

	// ListByState returns jobs in a given state, oldest first.
	ListByState(ctx context.Context, state domain.JobState) ([]domain.Job, error)

	// StuckRunning returns running jobs whose attempt started before
	// the cutoff, for the watchdog to requeue.
	StuckRunning(ctx context.Context, cutoff time.Time) ([]domain.Job, error)
}
