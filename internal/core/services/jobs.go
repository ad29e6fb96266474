package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/logger"
)

// JobHandler executes the work a job describes. A nil error marks the
// job succeeded; any other error marks it failed and subject to retry.
type JobHandler func(ctx context.Context, job domain.Job) error

// JobTracker persists job lifecycle state and runs the worker pool that
// executes queued jobs. State transitions go through the store's
// compare-and-swap so they are atomic per job.
type JobTracker struct {
	store    driven.JobStore
	cfg      domain.JobsConfig
	handlers map[domain.JobKind]JobHandler

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewJobTracker creates a job tracker backed by the given store.
func NewJobTracker(store driven.JobStore, cfg domain.JobsConfig) *JobTracker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}
	if cfg.WatchdogGrace <= 0 {
		cfg.WatchdogGrace = 5 * time.Minute
	}
	return &JobTracker{
		store:    store,
		cfg:      cfg,
		handlers: make(map[domain.JobKind]JobHandler),
		workers:  make(chan struct{}, cfg.Workers),
	}
}

// RegisterHandler binds a handler to a job kind. Must be called before
// Start.
func (t *JobTracker) RegisterHandler(kind domain.JobKind, handler JobHandler) {
	t.handlers[kind] = handler
}

// Enqueue creates a queued job for the given work description.
func (t *JobTracker) Enqueue(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (*domain.Job, error) {
	now := time.Now()
	job := &domain.Job{
		ID:          uuid.New().String(),
		Kind:        kind,
		Payload:     payload,
		State:       domain.JobStateQueued,
		MaxAttempts: t.cfg.MaxAttempts,
		NextRunAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	logger.Debug("Job %s enqueued (%s)", job.ID, kind)
	return job, nil
}

// MarkRunning claims a queued job for execution, incrementing its
// attempt counter. Returns domain.ErrStateConflict if another worker
// claimed it first.
func (t *JobTracker) MarkRunning(ctx context.Context, jobID string) error {
	now := time.Now()
	return t.store.Transition(ctx, jobID, domain.JobStateQueued, func(j *domain.Job) {
		j.State = domain.JobStateRunning
		j.Attempts++
		j.StartedAt = now
		j.UpdatedAt = now
	})
}

// MarkSucceeded moves a running job to its terminal succeeded state.
func (t *JobTracker) MarkSucceeded(ctx context.Context, jobID string) error {
	now := time.Now()
	return t.store.Transition(ctx, jobID, domain.JobStateRunning, func(j *domain.Job) {
		j.State = domain.JobStateSucceeded
		j.LastError = ""
		j.UpdatedAt = now
	})
}

// MarkFailed records a failed attempt and decides the job's fate:
// requeued with backoff while attempts remain, dead-lettered once the
// budget is exhausted. Returns the resulting state.
func (t *JobTracker) MarkFailed(ctx context.Context, jobID string, jobErr error) (domain.JobState, error) {
	now := time.Now()
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	if err := t.store.Transition(ctx, jobID, domain.JobStateRunning, func(j *domain.Job) {
		j.State = domain.JobStateFailed
		j.LastError = msg
		j.UpdatedAt = now
	}); err != nil {
		return "", err
	}

	job, err := t.store.Get(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("get job: %w", err)
	}

	if job.Attempts >= job.MaxAttempts || !retryable(jobErr) {
		if err := t.store.Transition(ctx, jobID, domain.JobStateFailed, func(j *domain.Job) {
			j.State = domain.JobStateDeadLettered
			j.UpdatedAt = now
		}); err != nil {
			return "", err
		}
		logger.Warn("Job %s dead-lettered after %d attempts: %s", jobID, job.Attempts, msg)
		return domain.JobStateDeadLettered, nil
	}

	delay := t.backoff(job.Attempts)
	if err := t.store.Transition(ctx, jobID, domain.JobStateFailed, func(j *domain.Job) {
		j.State = domain.JobStateQueued
		j.NextRunAt = now.Add(delay)
		j.UpdatedAt = now
	}); err != nil {
		return "", err
	}
	logger.Info("Job %s requeued (attempt %d/%d, retry in %s)", jobID, job.Attempts, job.MaxAttempts, delay)
	return domain.JobStateQueued, nil
}

// Status returns the externally visible view of a job.
func (t *JobTracker) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	job, err := t.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &domain.JobStatus{
		JobID:     job.ID,
		State:     job.State,
		Attempts:  job.Attempts,
		LastError: job.LastError,
	}, nil
}

// DeadLetters returns jobs awaiting operator inspection.
func (t *JobTracker) DeadLetters(ctx context.Context) ([]domain.Job, error) {
	return t.store.ListByState(ctx, domain.JobStateDeadLettered)
}

// Resubmit enqueues a fresh job with the same payload as a dead-lettered
// one. The original stays terminal.
func (t *JobTracker) Resubmit(ctx context.Context, jobID string) (string, error) {
	job, err := t.store.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.State != domain.JobStateDeadLettered {
		return "", fmt.Errorf("%w: job %s is %s, only dead-lettered jobs can be resubmitted",
			domain.ErrInvalidInput, jobID, job.State)
	}
	fresh, err := t.Enqueue(ctx, job.Kind, job.Payload)
	if err != nil {
		return "", err
	}
	return fresh.ID, nil
}

// retryable reports whether retrying can fix the error. Malformed
// input and content over model limits need caller intervention, not
// more attempts.
func retryable(err error) bool {
	return !(errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrTokenLimitExceeded) ||
		errors.Is(err, domain.ErrModelMismatch))
}

// backoff computes the exponential retry delay with jitter for the
// given attempt count (1-based).
func (t *JobTracker) backoff(attempts int) time.Duration {
	delay := t.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= t.cfg.MaxBackoff {
			delay = t.cfg.MaxBackoff
			break
		}
	}
	// Up to 50% jitter so retries from one incident spread out.
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	delay += jitter
	if delay > t.cfg.MaxBackoff {
		delay = t.cfg.MaxBackoff
	}
	return delay
}

// Start launches the worker pool and watchdog in the background and
// returns immediately. Calling Start on a running tracker is a no-op.
// Stop (or cancelling ctx) halts polling and drains in-flight jobs.
func (t *JobTracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	go t.run(ctx, t.stopCh)
}

// run is the poll loop. It owns the tickers and exits when the context
// is cancelled or stopCh closes.
func (t *JobTracker) run(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()
	watchdog := time.NewTicker(t.cfg.WatchdogGrace / 2)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			t.wg.Wait()
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
			return
		case <-stopCh:
			t.wg.Wait()
			return
		case <-ticker.C:
			t.dispatchDue(ctx)
		case <-watchdog.C:
			t.requeueStuck(ctx)
		}
	}
}

// Stop signals the worker pool to drain and waits for in-flight jobs.
func (t *JobTracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	t.mu.Unlock()
	t.wg.Wait()
}

// dispatchDue claims due jobs and hands them to workers.
func (t *JobTracker) dispatchDue(ctx context.Context) {
	due, err := t.store.Due(ctx, time.Now(), cap(t.workers))
	if err != nil {
		logger.Warn("Job poll failed: %v", err)
		return
	}

	for _, job := range due {
		if err := t.MarkRunning(ctx, job.ID); err != nil {
			if !errors.Is(err, domain.ErrStateConflict) {
				logger.Warn("Claim job %s: %v", job.ID, err)
			}
			continue
		}

		job := job
		t.workers <- struct{}{}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer func() { <-t.workers }()
			t.execute(ctx, job)
		}()
	}
}

// execute runs one claimed job through its handler and records the
// outcome.
func (t *JobTracker) execute(ctx context.Context, job domain.Job) {
	handler, ok := t.handlers[job.Kind]
	if !ok {
		if _, err := t.MarkFailed(ctx, job.ID, fmt.Errorf("no handler for kind %q", job.Kind)); err != nil {
			logger.Warn("Record failure for job %s: %v", job.ID, err)
		}
		return
	}

	if err := handler(ctx, job); err != nil {
		if _, ferr := t.MarkFailed(ctx, job.ID, err); ferr != nil {
			logger.Warn("Record failure for job %s: %v", job.ID, ferr)
		}
		return
	}

	if err := t.MarkSucceeded(ctx, job.ID); err != nil {
		logger.Warn("Record success for job %s: %v", job.ID, err)
	}
}

// requeueStuck returns jobs stuck in running past the grace period to
// the queue, or dead-letters them when their attempt budget is spent.
// A crash mid-job must never leave it running forever.
func (t *JobTracker) requeueStuck(ctx context.Context) {
	cutoff := time.Now().Add(-t.cfg.WatchdogGrace)
	stuck, err := t.store.StuckRunning(ctx, cutoff)
	if err != nil {
		logger.Warn("Watchdog scan failed: %v", err)
		return
	}

	now := time.Now()
	for _, job := range stuck {
		exhausted := job.Attempts >= job.MaxAttempts
		err := t.store.Transition(ctx, job.ID, domain.JobStateRunning, func(j *domain.Job) {
			if exhausted {
				j.State = domain.JobStateDeadLettered
				j.LastError = "dead-lettered by watchdog: stuck in running with no attempts left"
			} else {
				j.State = domain.JobStateQueued
				j.NextRunAt = now
				j.LastError = "requeued by watchdog: stuck in running"
			}
			j.UpdatedAt = now
		})
		if err != nil && !errors.Is(err, domain.ErrStateConflict) {
			logger.Warn("Watchdog requeue %s: %v", job.ID, err)
			continue
		}
		logger.Info("Watchdog recovered job %s (exhausted=%t)", job.ID, exhausted)
	}
}
