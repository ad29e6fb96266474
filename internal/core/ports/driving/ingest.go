package driving

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// IngestService is the ingestion-side boundary of the engine.
type IngestService interface {
	// CreateCollection creates an empty collection. Name is unique per
	// owner; duplicates are rejected with domain.ErrAlreadyExists.
	CreateCollection(ctx context.Context, owner, name string) (*domain.Collection, error)

	// SubmitDocument registers a document and enqueues its ingestion
	// job, returning the job ID. Resubmitting an already-ready document
	// without force is a no-op at the pipeline level: no new chunks or
	// embeddings are produced.
	SubmitDocument(ctx context.Context, collectionID, sourceRef, content string, force bool) (jobID string, err error)

	// ReembedCollection enqueues a job that re-chunks and re-embeds
	// every document in a collection under the currently configured
	// embedding model, returning the job ID.
	ReembedCollection(ctx context.Context, collectionID string) (jobID string, err error)

	// ExcludeDocument marks a failed document as deliberately excluded
	// so it no longer blocks its collection from becoming ready.
	ExcludeDocument(ctx context.Context, documentID string) error

	// CollectionStatus reports a collection's aggregated state, member
	// document counts, and question coverage.
	CollectionStatus(ctx context.Context, collectionID string) (*CollectionReport, error)
}

// CollectionReport is the observable state of a collection.
type CollectionReport struct {
	// Collection is the collection record.
	Collection domain.Collection

	// DocumentsByStatus counts member documents per status.
	DocumentsByStatus map[domain.DocumentStatus]int

	// TotalChunks is the number of chunks across all documents.
	TotalChunks int

	// QuestionCoverage is the fraction of chunks referenced by at least
	// one generated question.
	QuestionCoverage float64

	// Questions is the collection's generated question set.
	Questions []domain.Question
}
