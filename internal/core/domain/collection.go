package domain

import (
	"strings"
	"time"
	"unicode"
)

// CollectionStatus aggregates member document states.
type CollectionStatus string

// Collection lifecycle states.
const (
	// CollectionStatusEmpty means no documents have been submitted.
	CollectionStatusEmpty CollectionStatus = "empty"

	// CollectionStatusIngesting means at least one document is in flight.
	CollectionStatusIngesting CollectionStatus = "ingesting"

	// CollectionStatusReady means every member document is ready or was
	// explicitly excluded after exhausting retries.
	CollectionStatusReady CollectionStatus = "ready"

	// CollectionStatusFailed means no work is in flight but at least one
	// non-excluded document failed.
	CollectionStatusFailed CollectionStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionStatusEmpty, CollectionStatusIngesting, CollectionStatusReady, CollectionStatusFailed:
		return true
	default:
		return false
	}
}

// Collection groups documents into one searchable embedding space.
type Collection struct {
	// ID is the unique identifier for the collection.
	ID string

	// Owner identifies who the collection belongs to.
	// Name is unique per owner.
	Owner string

	// Name is the human-readable collection name.
	Name string

	// Status is aggregated from member document states. It is written
	// only by the ingestion pipeline (single-writer rule).
	Status CollectionStatus

	// EmbedModel is the embedding model all member chunks share.
	// Set on first successful embed; mismatching writes are rejected.
	EmbedModel string

	// Dimensions is the embedding vector size for the collection.
	Dimensions int

	// CreatedAt is when the collection was created.
	CreatedAt time.Time

	// UpdatedAt is when the collection last changed.
	UpdatedAt time.Time
}

// AggregateStatus computes the collection status from its member
// document states. Excluded documents count as settled.
func AggregateStatus(docs []Document) CollectionStatus {
	if len(docs) == 0 {
		return CollectionStatusEmpty
	}

	failed := false
	for i := range docs {
		if docs[i].Excluded {
			continue
		}
		if docs[i].Status.InFlight() {
			return CollectionStatusIngesting
		}
		if docs[i].Status == DocumentStatusFailed {
			failed = true
		}
	}

	if failed {
		return CollectionStatusFailed
	}
	return CollectionStatusReady
}

// Question is a generated question tied to a collection, used for
// search suggestions and coverage evaluation.
type Question struct {
	// ID is the unique identifier for the question.
	ID string

	// CollectionID links to the owning Collection.
	CollectionID string

	// ChunkID links to the source chunk the question was derived from.
	// Empty when the question was not chunk-specific.
	ChunkID string

	// Text is the question as generated.
	Text string

	// CreatedAt is when the question was generated.
	CreatedAt time.Time
}

// NormalizeQuestion reduces question text to a canonical form for
// deduplication: lower case, punctuation stripped, whitespace collapsed.
func NormalizeQuestion(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
