package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/logger"
)

// Candidate is one retrieved chunk with every ranking signal collected
// along the pipeline. Later stages (reranker, confidence scorer) fill
// in their fields without re-fetching anything.
type Candidate struct {
	// Chunk is the retrieved passage.
	Chunk domain.Chunk

	// Fused is the reciprocal-rank-fusion score.
	Fused float64

	// FusedRank is the 1-based rank after fusion.
	FusedRank int

	// DenseSim is the cosine similarity from dense retrieval, zero if
	// the chunk only surfaced lexically.
	DenseSim float64

	// LexScore is the lexical (BM25) score, zero if the chunk only
	// surfaced densely.
	LexScore float64

	// Rerank is the reranker's relevance signal.
	Rerank float64

	// Confidence is the calibrated confidence in [0,1].
	Confidence float64
}

// Retriever performs hybrid (dense + lexical) retrieval over one
// collection. Either retrieval mode may be unavailable; the other's
// results are returned rather than failing outright.
type Retriever struct {
	docs     driven.DocumentStore
	vectors  driven.VectorIndex
	lexical  driven.LexicalIndex
	embedder driven.EmbeddingService
	cfg      domain.RetrievalConfig
}

// NewRetriever creates a hybrid retriever. vectors+embedder and lexical
// are each optional as a pair (can be nil).
func NewRetriever(
	docs driven.DocumentStore,
	vectors driven.VectorIndex,
	lexical driven.LexicalIndex,
	embedder driven.EmbeddingService,
	cfg domain.RetrievalConfig,
) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.FusionK <= 0 {
		cfg.FusionK = 60
	}
	return &Retriever{
		docs:     docs,
		vectors:  vectors,
		lexical:  lexical,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Retrieve runs dense and lexical searches in parallel, fuses them with
// reciprocal rank fusion, deduplicates by chunk identity, and hydrates
// chunk content. Candidates come back ordered best first.
func (r *Retriever) Retrieve(ctx context.Context, collectionID, isolatedQuery string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	var denseHits []driven.VectorHit
	var lexHits []driven.LexicalHit
	var denseErr, lexErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		denseHits, denseErr = r.denseSearch(ctx, collectionID, isolatedQuery, k)
	}()

	go func() {
		defer wg.Done()
		lexHits, lexErr = r.lexicalSearch(ctx, collectionID, isolatedQuery, k)
	}()

	wg.Wait()

	// Degrade gracefully: one mode failing leaves the other's results.
	if denseErr != nil && lexErr != nil {
		return nil, fmt.Errorf("hybrid retrieval: dense=%w, lexical=%w", denseErr, lexErr)
	}
	if denseErr != nil {
		logger.Warn("Dense retrieval unavailable, using lexical only: %v", denseErr)
	}
	if lexErr != nil {
		logger.Warn("Lexical retrieval unavailable, using dense only: %v", lexErr)
	}

	logger.Debug("Retrieval: %d dense + %d lexical hits", len(denseHits), len(lexHits))

	fused := r.fuse(denseHits, lexHits)
	return r.hydrate(ctx, fused, k)
}

// denseSearch embeds the query and searches the vector index.
func (r *Retriever) denseSearch(ctx context.Context, collectionID, query string, k int) ([]driven.VectorHit, error) {
	if r.vectors == nil || r.embedder == nil {
		return nil, domain.ErrAdapterUnavailable
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.vectors.Query(ctx, collectionID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

// lexicalSearch queries the lexical index.
func (r *Retriever) lexicalSearch(ctx context.Context, collectionID, query string, k int) ([]driven.LexicalHit, error) {
	if r.lexical == nil {
		return nil, domain.ErrAdapterUnavailable
	}

	hits, err := r.lexical.Search(ctx, collectionID, query, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return hits, nil
}

// fuse merges the two ranked lists with reciprocal rank fusion and
// deduplicates by chunk identity, keeping each chunk's best raw signals.
func (r *Retriever) fuse(denseHits []driven.VectorHit, lexHits []driven.LexicalHit) []Candidate {
	byID := make(map[string]*Candidate)

	for rank, hit := range denseHits {
		cand := byID[hit.ChunkID]
		if cand == nil {
			cand = &Candidate{Chunk: domain.Chunk{ID: hit.ChunkID}}
			byID[hit.ChunkID] = cand
		}
		cand.Fused += 1.0 / float64(r.cfg.FusionK+rank+1)
		if hit.Similarity > cand.DenseSim {
			cand.DenseSim = hit.Similarity
		}
	}

	for rank, hit := range lexHits {
		cand := byID[hit.ChunkID]
		if cand == nil {
			cand = &Candidate{Chunk: domain.Chunk{ID: hit.ChunkID}}
			byID[hit.ChunkID] = cand
		}
		cand.Fused += 1.0 / float64(r.cfg.FusionK+rank+1)
		if hit.Score > cand.LexScore {
			cand.LexScore = hit.Score
		}
	}

	out := make([]Candidate, 0, len(byID))
	for _, cand := range byID {
		out = append(out, *cand)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fused > out[j].Fused
	})
	for i := range out {
		out[i].FusedRank = i + 1
	}
	return out
}

// hydrate loads chunk content for the top candidates, skipping chunks
// deleted since indexing.
func (r *Retriever) hydrate(ctx context.Context, candidates []Candidate, k int) ([]Candidate, error) {
	out := make([]Candidate, 0, k)
	for _, cand := range candidates {
		chunk, err := r.docs.GetChunk(ctx, cand.Chunk.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", cand.Chunk.ID, err)
		}
		cand.Chunk = *chunk
		out = append(out, cand)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}
