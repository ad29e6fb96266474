package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStateIsValid(t *testing.T) {
	valid := []JobState{
		JobStateQueued, JobStateRunning, JobStateSucceeded,
		JobStateFailed, JobStateDeadLettered,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "state %q should be valid", s)
	}

	assert.False(t, JobState("paused").IsValid())
	assert.False(t, JobState("").IsValid())
}

func TestJobStateTerminal(t *testing.T) {
	assert.True(t, JobStateSucceeded.Terminal())
	assert.True(t, JobStateDeadLettered.Terminal())
	assert.False(t, JobStateQueued.Terminal())
	assert.False(t, JobStateRunning.Terminal())
	assert.False(t, JobStateFailed.Terminal())
}

func TestJobStateCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobState
		to   JobState
		want bool
	}{
		{"queued to running", JobStateQueued, JobStateRunning, true},
		{"queued to succeeded", JobStateQueued, JobStateSucceeded, false},
		{"running to succeeded", JobStateRunning, JobStateSucceeded, true},
		{"running to failed", JobStateRunning, JobStateFailed, true},
		{"running to dead_lettered", JobStateRunning, JobStateDeadLettered, true},
		{"running back to queued (watchdog)", JobStateRunning, JobStateQueued, true},
		{"failed to queued (retry)", JobStateFailed, JobStateQueued, true},
		{"failed to dead_lettered", JobStateFailed, JobStateDeadLettered, true},
		{"failed to succeeded", JobStateFailed, JobStateSucceeded, false},
		{"succeeded is terminal", JobStateSucceeded, JobStateQueued, false},
		{"dead_lettered is terminal", JobStateDeadLettered, JobStateQueued, false},
		{"dead_lettered cannot rerun", JobStateDeadLettered, JobStateRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}
