package services

import (
	"sort"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/logger"
)

// Reranker reorders fused candidates with a finer-grained relevance
// signal than the rank positions the fusion step already used: direct
// term overlap between the query and the candidate text, with a small
// bonus for preserved query word order. It never introduces candidates
// not present in its input, and it caps the set before scoring so its
// cost stays bounded.
type Reranker struct {
	limit int
}

// NewReranker creates a reranker that scores at most limit candidates.
func NewReranker(limit int) *Reranker {
	if limit <= 0 {
		limit = 50
	}
	return &Reranker{limit: limit}
}

// Rerank reorders candidates by the cross signal, best first. The
// Rerank field is populated on every returned candidate.
func (r *Reranker) Rerank(query string, candidates []Candidate) []Candidate {
	if len(candidates) > r.limit {
		logger.Debug("Reranker: capping %d candidates to %d", len(candidates), r.limit)
		candidates = candidates[:r.limit]
	}

	queryTerms := termSet(query)
	queryBigrams := bigrams(query)

	for i := range candidates {
		overlap := termOverlap(queryTerms, candidates[i].Chunk.Text)
		order := bigramOverlap(queryBigrams, candidates[i].Chunk.Text)
		candidates[i].Rerank = 0.8*overlap + 0.2*order
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Rerank > candidates[j].Rerank
	})
	return candidates
}

// bigrams returns the set of adjacent lowercase term pairs in text.
func bigrams(text string) map[string]bool {
	terms := domain.Tokens(normaliseTerms(text))
	set := make(map[string]bool)
	for i := 0; i+1 < len(terms); i++ {
		set[terms[i]+" "+terms[i+1]] = true
	}
	return set
}

// bigramOverlap returns the fraction of query bigrams present in text.
func bigramOverlap(query map[string]bool, text string) float64 {
	if len(query) == 0 {
		return 0
	}
	candidate := bigrams(text)
	hits := 0
	for pair := range query {
		if candidate[pair] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
