package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Ensure JobStore implements the interface.
var _ driven.JobStore = (*JobStore)(nil)

// JobStore is an in-memory implementation of driven.JobStore. The
// compare-and-swap in Transition happens under the store mutex, so two
// workers racing for the same job see exactly one winner.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.Job
}

// NewJobStore creates a new in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]domain.Job),
	}
}

// Save creates a new job.
func (s *JobStore) Save(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// Get retrieves a job by ID.
func (s *JobStore) Get(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// Transition atomically moves a job out of the expected state.
func (s *JobStore) Transition(_ context.Context, id string, from domain.JobState, mutate func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if job.State != from {
		return fmt.Errorf("%w: job %s is %s, expected %s", domain.ErrStateConflict, id, job.State, from)
	}
	mutate(&job)
	if !from.CanTransition(job.State) {
		return fmt.Errorf("%w: job %s cannot move %s -> %s", domain.ErrStateConflict, id, from, job.State)
	}
	s.jobs[id] = job
	return nil
}

// Due returns queued jobs whose NextRunAt is at or before now.
func (s *JobStore) Due(_ context.Context, now time.Time, limit int) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.State == domain.JobStateQueued && !job.NextRunAt.After(now) {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextRunAt.Before(result[j].NextRunAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListByState returns jobs in a given state, oldest first.
func (s *JobStore) ListByState(_ context.Context, state domain.JobState) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.State == state {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// StuckRunning returns running jobs whose attempt started before the
// cutoff.
func (s *JobStore) StuckRunning(_ context.Context, cutoff time.Time) ([]domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.State == domain.JobStateRunning && job.StartedAt.Before(cutoff) {
			result = append(result, job)
		}
	}
	return result, nil
}
