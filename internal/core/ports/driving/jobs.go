package driving

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// JobService exposes job lifecycle state to operators and UIs.
// It prescribes the state contract, not the transport: consumers may
// poll Status or wrap it in whatever push mechanism they run.
type JobService interface {
	// Status returns a job's state, attempt count and last error.
	Status(ctx context.Context, jobID string) (*domain.JobStatus, error)

	// DeadLetters returns jobs that exhausted their retries and await
	// operator inspection.
	DeadLetters(ctx context.Context) ([]domain.Job, error)

	// Resubmit enqueues a fresh job carrying the same payload as a
	// dead-lettered one. The dead-lettered job itself is terminal and
	// never transitions again.
	Resubmit(ctx context.Context, jobID string) (newJobID string, err error)
}
