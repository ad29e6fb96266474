package driven

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// CollectionStore persists collections.
type CollectionStore interface {
	// Save stores or updates a collection.
	Save(ctx context.Context, collection *domain.Collection) error

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// GetByName retrieves a collection by owner and name.
	GetByName(ctx context.Context, owner, name string) (*domain.Collection, error)

	// List returns all collections.
	List(ctx context.Context) ([]domain.Collection, error)
}

// DocumentStore persists documents, their chunks, and generated
// questions. Writes come only from the ingestion pipeline; the query
// pipeline reads.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetBySourceRef retrieves a document by collection and source
	// reference, for idempotent resubmission.
	GetBySourceRef(ctx context.Context, collectionID, sourceRef string) (*domain.Document, error)

	// ListByCollection returns all documents in a collection.
	ListByCollection(ctx context.Context, collectionID string) ([]domain.Document, error)

	// SaveChunks replaces the chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by Seq.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteChunks removes all chunks for a document.
	DeleteChunks(ctx context.Context, documentID string) error

	// SaveQuestions stores generated questions.
	SaveQuestions(ctx context.Context, questions []domain.Question) error

	// QuestionsByCollection returns all questions for a collection.
	QuestionsByCollection(ctx context.Context, collectionID string) ([]domain.Question, error)
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	// Save stores or updates a session.
	Save(ctx context.Context, session *domain.ConversationSession) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.ConversationSession, error)
}
