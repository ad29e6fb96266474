package domain

import "time"

// JobState tracks one unit of asynchronous work.
type JobState string

// Job lifecycle states.
const (
	// JobStateQueued means the job is waiting for a worker.
	JobStateQueued JobState = "queued"

	// JobStateRunning means a worker has claimed the job.
	JobStateRunning JobState = "running"

	// JobStateSucceeded is terminal: the work completed.
	JobStateSucceeded JobState = "succeeded"

	// JobStateFailed means the last attempt failed; the job is requeued
	// until the attempt budget runs out.
	JobStateFailed JobState = "failed"

	// JobStateDeadLettered is terminal: the job exhausted its retries
	// and is surfaced for operator inspection.
	JobStateDeadLettered JobState = "dead_lettered"
)

// IsValid returns true if the state is recognised.
func (s JobState) IsValid() bool {
	switch s {
	case JobStateQueued, JobStateRunning, JobStateSucceeded, JobStateFailed, JobStateDeadLettered:
		return true
	default:
		return false
	}
}

// Terminal returns true for states a job never leaves.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateDeadLettered
}

// CanTransition reports whether moving from s to next is a legal
// lifecycle step. Terminal states are immutable.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobStateQueued:
		return next == JobStateRunning
	case JobStateRunning:
		return next == JobStateSucceeded || next == JobStateFailed || next == JobStateDeadLettered || next == JobStateQueued
	case JobStateFailed:
		return next == JobStateQueued || next == JobStateDeadLettered
	default:
		return false
	}
}

// JobKind identifies the type of work a job carries.
type JobKind string

// Built-in job kinds.
const (
	// JobKindIngestDocument runs the ingestion pipeline for one document.
	JobKindIngestDocument JobKind = "ingest_document"

	// JobKindReembedCollection re-embeds every document in a collection,
	// used after an embedding model change.
	JobKindReembedCollection JobKind = "reembed_collection"
)

// JobPayload carries the work description for a job.
type JobPayload struct {
	// CollectionID scopes the work to one collection.
	CollectionID string

	// DocumentID identifies the document for ingestion jobs.
	DocumentID string

	// Force re-runs ingestion even if the document is already ready.
	Force bool
}

// Job tracks one unit of asynchronous work through its lifecycle.
type Job struct {
	// ID is the unique identifier for the job.
	ID string

	// Kind identifies the work type.
	Kind JobKind

	// Payload is the work description.
	Payload JobPayload

	// State is the job's lifecycle state.
	State JobState

	// Attempts is how many times the job has been started.
	// Never exceeds MaxAttempts.
	Attempts int

	// MaxAttempts is the bounded retry budget for this job.
	MaxAttempts int

	// LastError is the most recent failure message, if any.
	LastError string

	// NextRunAt is the earliest time a queued job may be claimed.
	// Set by the backoff policy after a failure.
	NextRunAt time.Time

	// StartedAt is when the current attempt began. Used by the watchdog
	// to detect jobs stuck in running.
	StartedAt time.Time

	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time

	// UpdatedAt is when the job last changed.
	UpdatedAt time.Time
}

// JobStatus is the externally visible view of a job, returned by the
// tracker's status query.
type JobStatus struct {
	// JobID identifies the job.
	JobID string

	// State is the job's current lifecycle state.
	State JobState

	// Attempts is how many times the job has been started.
	Attempts int

	// LastError is the most recent failure message, if any.
	LastError string
}
