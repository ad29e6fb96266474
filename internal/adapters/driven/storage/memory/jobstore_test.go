package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

func TestJobStore_TransitionCASConflict(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.Job{ID: "j1", State: domain.JobStateQueued, MaxAttempts: 3, CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, job))

	err := store.Transition(ctx, "j1", domain.JobStateQueued, func(j *domain.Job) {
		j.State = domain.JobStateRunning
		j.Attempts++
	})
	require.NoError(t, err)

	// Second claim from the stale queued state loses.
	err = store.Transition(ctx, "j1", domain.JobStateQueued, func(j *domain.Job) {
		j.State = domain.JobStateRunning
		j.Attempts++
	})
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateRunning, got.State)
	assert.Equal(t, 1, got.Attempts)
}

func TestJobStore_TransitionRejectsIllegalStep(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()

	job := &domain.Job{ID: "j1", State: domain.JobStateSucceeded}
	require.NoError(t, store.Save(ctx, job))

	err := store.Transition(ctx, "j1", domain.JobStateSucceeded, func(j *domain.Job) {
		j.State = domain.JobStateQueued
	})
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestJobStore_DueRespectsNextRunAtAndLimit(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &domain.Job{ID: "past", State: domain.JobStateQueued, NextRunAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &domain.Job{ID: "due", State: domain.JobStateQueued, NextRunAt: now}))
	require.NoError(t, store.Save(ctx, &domain.Job{ID: "future", State: domain.JobStateQueued, NextRunAt: now.Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, &domain.Job{ID: "running", State: domain.JobStateRunning, NextRunAt: now.Add(-time.Hour)}))

	due, err := store.Due(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "past", due[0].ID)
	assert.Equal(t, "due", due[1].ID)

	due, err = store.Due(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "past", due[0].ID)
}

func TestJobStore_StuckRunning(t *testing.T) {
	store := NewJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &domain.Job{ID: "stuck", State: domain.JobStateRunning, StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, &domain.Job{ID: "fresh", State: domain.JobStateRunning, StartedAt: now}))

	stuck, err := store.StuckRunning(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "stuck", stuck[0].ID)
}
