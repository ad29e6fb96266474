package driven

import "context"

// VectorIndex provides semantic similarity search over embeddings,
// logically partitioned by collection. Write access is scoped by the
// collection identity, never a global lock.
type VectorIndex interface {
	// Upsert inserts or replaces the vector for a chunk. Inserting a
	// vector whose dimensionality differs from the collection's is
	// rejected with domain.ErrModelMismatch, not silently stored.
	Upsert(ctx context.Context, collectionID, chunkID string, vector []float32, metadata map[string]string) error

	// Query finds the k nearest neighbours within one collection.
	Query(ctx context.Context, collectionID string, vector []float32, k int) ([]VectorHit, error)

	// Delete removes a chunk's vector from the collection partition.
	Delete(ctx context.Context, collectionID, chunkID string) error

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
