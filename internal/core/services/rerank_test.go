package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

func candidatesFor(texts ...string) []Candidate {
	out := make([]Candidate, len(texts))
	for i, text := range texts {
		out[i] = Candidate{Chunk: domain.Chunk{ID: text, Text: text}}
	}
	return out
}

func TestReranker_OrdersByQueryOverlap(t *testing.T) {
	r := NewReranker(50)

	candidates := candidatesFor(
		"the weather is sunny today",
		"database replication lag explained",
		"replication lag in the database cluster",
	)

	got := r.Rerank("database replication lag", candidates)
	require.Len(t, got, 3)
	assert.NotEqual(t, "the weather is sunny today", got[0].Chunk.ID)
	assert.Equal(t, "the weather is sunny today", got[2].Chunk.ID)
	for _, cand := range got[:2] {
		assert.Greater(t, cand.Rerank, got[2].Rerank)
	}
}

func TestReranker_WordOrderBreaksTies(t *testing.T) {
	r := NewReranker(50)

	candidates := candidatesFor(
		"lag replication database notes",
		"database replication lag notes",
	)

	got := r.Rerank("database replication lag", candidates)
	require.Len(t, got, 2)
	// Same term overlap; preserved adjacency wins.
	assert.Equal(t, "database replication lag notes", got[0].Chunk.ID)
}

func TestReranker_NeverIntroducesCandidates(t *testing.T) {
	r := NewReranker(50)
	in := candidatesFor("one", "two")

	got := r.Rerank("three", in)
	require.Len(t, got, 2)
	ids := map[string]bool{got[0].Chunk.ID: true, got[1].Chunk.ID: true}
	assert.True(t, ids["one"])
	assert.True(t, ids["two"])
}

func TestReranker_CapsBeforeScoring(t *testing.T) {
	r := NewReranker(2)

	// The best match sits beyond the cap, so it must not surface.
	candidates := candidatesFor(
		"nothing relevant here",
		"still nothing",
		"database replication lag exactly",
	)

	got := r.Rerank("database replication lag", candidates)
	require.Len(t, got, 2)
	for _, cand := range got {
		assert.NotEqual(t, "database replication lag exactly", cand.Chunk.ID)
	}
}

func TestConfidenceScorer_MonotonicInSimilarity(t *testing.T) {
	s := NewConfidenceScorer()

	candidates := []Candidate{
		{DenseSim: 0.9, Rerank: 0.5, Fused: 0.03},
		{DenseSim: 0.6, Rerank: 0.5, Fused: 0.03},
		{DenseSim: 0.3, Rerank: 0.5, Fused: 0.03},
	}
	s.Score(candidates)

	assert.Greater(t, candidates[0].Confidence, candidates[1].Confidence)
	assert.Greater(t, candidates[1].Confidence, candidates[2].Confidence)
}

func TestConfidenceScorer_NotConstantAcrossDiverseSet(t *testing.T) {
	s := NewConfidenceScorer()

	candidates := []Candidate{
		{DenseSim: 0.95, Rerank: 0.8, Fused: 0.032},
		{DenseSim: 0.40, Rerank: 0.2, Fused: 0.016},
	}
	s.Score(candidates)

	assert.NotEqual(t, candidates[0].Confidence, candidates[1].Confidence)
	for _, cand := range candidates {
		assert.GreaterOrEqual(t, cand.Confidence, 0.0)
		assert.LessOrEqual(t, cand.Confidence, 1.0)
	}
}

func TestConfidenceScorer_SingleCandidateScoresFull(t *testing.T) {
	s := NewConfidenceScorer()

	candidates := []Candidate{{DenseSim: 0.7, Rerank: 0.4, Fused: 0.02}}
	s.Score(candidates)
	assert.InDelta(t, 1.0, candidates[0].Confidence, 1e-9)
}

func TestConfidenceScorer_OverallWeightsTopPassages(t *testing.T) {
	s := NewConfidenceScorer()

	high := []Candidate{{Confidence: 0.9}, {Confidence: 0.1}}
	low := []Candidate{{Confidence: 0.1}, {Confidence: 0.9}}

	assert.Greater(t, s.Overall(high), s.Overall(low))
	assert.Zero(t, s.Overall(nil))
}
