package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// Caller's fault; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion Errors.

	// ErrTokenLimitExceeded indicates content exceeds the embedding model's
	// token limit even after splitting. Requires caller intervention.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrModelMismatch indicates an embedding was produced by a different
	// model (or dimensionality) than the collection's. Mixing embedding
	// spaces silently corrupts ranking, so writes are rejected.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrAdapterUnavailable indicates a transient provider or network
	// failure. Retried with backoff on the ingestion side, surfaced
	// immediately with partial results on the query side.
	ErrAdapterUnavailable = errors.New("adapter unavailable")

	// Job Errors.

	// ErrStateConflict indicates a job transition was attempted from a
	// state the job is no longer in. The caller lost the race.
	ErrStateConflict = errors.New("job state conflict")

	// ErrDeadLettered indicates a job exhausted its retry budget.
	// Requires operator action; the job itself never transitions again.
	ErrDeadLettered = errors.New("job dead-lettered")

	// Query Errors.

	// ErrCollectionNotReady indicates the collection has no searchable
	// documents yet.
	ErrCollectionNotReady = errors.New("collection not ready")

	// ErrContextTooLarge indicates the prompt exceeds the generation
	// provider's input budget even after truncation. Internal truncation
	// should prevent this; when it occurs it is a configuration bug.
	ErrContextTooLarge = errors.New("context too large")

	// ErrGenerationUnavailable indicates the generation provider failed
	// during answer synthesis. SearchOutput is still returned with the
	// retrieved passages but no answer.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)
