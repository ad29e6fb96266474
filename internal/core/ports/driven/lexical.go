package driven

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// LexicalIndex provides sparse (term-based) search over chunk text,
// scoped by collection. Backed by Bleve for BM25 scoring.
type LexicalIndex interface {
	// Index adds or updates a chunk in the lexical index.
	Index(ctx context.Context, chunk domain.Chunk) error

	// Search performs a term query within one collection and returns
	// matching chunk IDs with scores.
	Search(ctx context.Context, collectionID, query string, limit int) ([]LexicalHit, error)

	// Delete removes a chunk from the lexical index.
	Delete(ctx context.Context, chunkID string) error

	// Close releases resources.
	Close() error
}

// LexicalHit represents a lexical search result.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}
