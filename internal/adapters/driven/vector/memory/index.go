// Package memory provides an in-process vector index with cosine
// similarity search, partitioned by collection.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one stored vector with its metadata.
type entry struct {
	vector   []float32
	metadata map[string]string
}

// partition holds one collection's vectors behind its own lock, so
// writes to different collections never contend.
type partition struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]entry
}

// Index is an in-memory vector index. Each collection is pinned to the
// dimensionality of its first vector; mismatching inserts are rejected.
type Index struct {
	mu         sync.Mutex
	partitions map[string]*partition
}

// NewIndex creates an empty vector index.
func NewIndex() *Index {
	return &Index{partitions: make(map[string]*partition)}
}

// partitionFor returns (creating if needed) a collection's partition.
func (x *Index) partitionFor(collectionID string) *partition {
	x.mu.Lock()
	defer x.mu.Unlock()
	p, ok := x.partitions[collectionID]
	if !ok {
		p = &partition{entries: make(map[string]entry)}
		x.partitions[collectionID] = p
	}
	return p
}

// Upsert inserts or replaces the vector for a chunk.
func (x *Index) Upsert(_ context.Context, collectionID, chunkID string, vector []float32, metadata map[string]string) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}

	p := x.partitionFor(collectionID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dimensions == 0 {
		p.dimensions = len(vector)
	} else if p.dimensions != len(vector) {
		return fmt.Errorf("%w: collection %s holds %dd vectors, got %dd",
			domain.ErrModelMismatch, collectionID, p.dimensions, len(vector))
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	p.entries[chunkID] = entry{vector: stored, metadata: metadata}
	return nil
}

// Query finds the k nearest neighbours within one collection by cosine
// similarity, best first.
func (x *Index) Query(_ context.Context, collectionID string, vector []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	p := x.partitionFor(collectionID)
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.dimensions != 0 && p.dimensions != len(vector) {
		return nil, fmt.Errorf("%w: collection %s holds %dd vectors, query is %dd",
			domain.ErrModelMismatch, collectionID, p.dimensions, len(vector))
	}

	hits := make([]driven.VectorHit, 0, len(p.entries))
	for chunkID, e := range p.entries {
		hits = append(hits, driven.VectorHit{
			ChunkID:    chunkID,
			Similarity: cosine(vector, e.vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes a chunk's vector from the collection partition.
// Emptying a partition releases its dimension pin, so a collection can
// be re-embedded under a model with different dimensionality.
func (x *Index) Delete(_ context.Context, collectionID, chunkID string) error {
	p := x.partitionFor(collectionID)
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, chunkID)
	if len(p.entries) == 0 {
		p.dimensions = 0
	}
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
