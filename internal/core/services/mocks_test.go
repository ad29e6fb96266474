package services

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// stubEmbedder is a deterministic bag-of-words embedder: each token
// hashes into one of eight buckets and the vector is normalised, so
// texts sharing terms get genuinely similar vectors.
type stubEmbedder struct {
	model     string
	maxTokens int

	// batchErr fails every EmbedBatch call, forcing per-chunk fallback.
	batchErr error

	// embedErr fails Embed for texts containing the given substring.
	embedErrSubstr string
	embedErr       error

	mu         sync.Mutex
	embedCalls int
	batchCalls int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{model: "stub-embed-8", maxTokens: 512}
}

const stubDimensions = 8

func hashEmbed(text string) []float32 {
	vec := make([]float32, stubDimensions)
	for _, tok := range domain.Tokens(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(tok, ".,;:!?\"'()[]")))
		vec[h.Sum32()%stubDimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.embedCalls++
	s.mu.Unlock()
	if s.embedErr != nil && (s.embedErrSubstr == "" || strings.Contains(text, s.embedErrSubstr)) {
		return nil, s.embedErr
	}
	return hashEmbed(text), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int, error) {
	s.mu.Lock()
	s.batchCalls++
	s.mu.Unlock()
	if s.batchErr != nil {
		return nil, nil, s.batchErr
	}
	vectors := make([][]float32, len(texts))
	counts := make([]int, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, nil, err
		}
		vectors[i] = vec
		counts[i] = domain.TokenCount(text)
	}
	return vectors, counts, nil
}

func (s *stubEmbedder) Dimensions() int { return stubDimensions }
func (s *stubEmbedder) ModelName() string { return s.model }
func (s *stubEmbedder) MaxTokens() int { return s.maxTokens }
func (s *stubEmbedder) Ping(context.Context) error { return nil }
func (s *stubEmbedder) Close() error { return nil }

var _ driven.EmbeddingService = (*stubEmbedder)(nil)

// fakeVectorIndex is a cosine-similarity index partitioned by
// collection, with an optional forced error for degradation tests.
type fakeVectorIndex struct {
	mu          sync.Mutex
	partitions  map[string]map[string][]float32
	queryErr    error
	upsertCount int
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{partitions: make(map[string]map[string][]float32)}
}

func (f *fakeVectorIndex) Upsert(_ context.Context, collectionID, chunkID string, vector []float32, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.partitions[collectionID] == nil {
		f.partitions[collectionID] = make(map[string][]float32)
	}
	f.partitions[collectionID][chunkID] = vector
	f.upsertCount++
	return nil
}

func (f *fakeVectorIndex) Query(_ context.Context, collectionID string, vector []float32, k int) ([]driven.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var hits []driven.VectorHit
	for chunkID, stored := range f.partitions[collectionID] {
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Similarity: cosine(vector, stored)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *fakeVectorIndex) Delete(_ context.Context, collectionID, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.partitions[collectionID], chunkID)
	return nil
}

func (f *fakeVectorIndex) Close() error { return nil }

var _ driven.VectorIndex = (*fakeVectorIndex)(nil)

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
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

// fakeLexicalIndex scores indexed chunks by query term overlap, a crude
// stand-in for BM25.
type fakeLexicalIndex struct {
	mu        sync.Mutex
	chunks    map[string]domain.Chunk
	searchErr error
}

func newFakeLexicalIndex() *fakeLexicalIndex {
	return &fakeLexicalIndex{chunks: make(map[string]domain.Chunk)}
}

func (f *fakeLexicalIndex) Index(_ context.Context, chunk domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[chunk.ID] = chunk
	return nil
}

func (f *fakeLexicalIndex) Search(_ context.Context, collectionID, query string, limit int) ([]driven.LexicalHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	terms := termSet(query)
	var hits []driven.LexicalHit
	for _, chunk := range f.chunks {
		if chunk.CollectionID != collectionID {
			continue
		}
		if score := termOverlap(terms, chunk.Text); score > 0 {
			hits = append(hits, driven.LexicalHit{ChunkID: chunk.ID, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeLexicalIndex) Delete(_ context.Context, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chunks, chunkID)
	return nil
}

func (f *fakeLexicalIndex) Close() error { return nil }

var _ driven.LexicalIndex = (*fakeLexicalIndex)(nil)

// stubGenerator answers from the prompt via a pluggable function.
type stubGenerator struct {
	generate  func(driven.PromptParts) (string, error)
	maxInput  int
	callCount int
	mu        sync.Mutex
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{
		// Echo the best passage: maximally grounded by construction.
		generate: func(p driven.PromptParts) (string, error) {
			if len(p.Passages) == 0 {
				return "No supporting passages were found.", nil
			}
			return p.Passages[0], nil
		},
		maxInput: 4096,
	}
}

func (s *stubGenerator) Generate(_ context.Context, prompt driven.PromptParts) (string, error) {
	s.mu.Lock()
	s.callCount++
	s.mu.Unlock()
	return s.generate(prompt)
}

func (s *stubGenerator) MaxInputTokens() int { return s.maxInput }
func (s *stubGenerator) ModelName() string { return "stub-gen" }
func (s *stubGenerator) Ping(context.Context) error { return nil }
func (s *stubGenerator) Close() error { return nil }

var _ driven.GenerationService = (*stubGenerator)(nil)
