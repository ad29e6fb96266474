package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/adapters/driven/storage/memory"
	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

func seedChunks(t *testing.T, docs *memory.DocumentStore, collectionID string, texts map[string]string) {
	t.Helper()
	var chunks []domain.Chunk
	seq := 0
	for id, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID: id, DocumentID: "doc", CollectionID: collectionID,
			Seq: seq, Text: text, TokenCount: domain.TokenCount(text),
		})
		seq++
	}
	require.NoError(t, docs.SaveChunks(context.Background(), chunks))
}

func TestRetriever_FusionPrefersChunksInBothLists(t *testing.T) {
	docs := memory.NewDocumentStore()
	seedChunks(t, docs, "c1", map[string]string{
		"both": "x", "dense-only": "x", "lex-only": "x",
	})

	vectors := newFakeVectorIndex()
	lexical := newFakeLexicalIndex()
	r := NewRetriever(docs, vectors, lexical, newStubEmbedder(), domain.RetrievalConfig{FusionK: 60})

	fused := r.fuse(
		[]driven.VectorHit{{ChunkID: "dense-only", Similarity: 0.9}, {ChunkID: "both", Similarity: 0.8}},
		[]driven.LexicalHit{{ChunkID: "both", Score: 2.0}, {ChunkID: "lex-only", Score: 1.5}},
	)

	require.Len(t, fused, 3)
	assert.Equal(t, "both", fused[0].Chunk.ID)
	assert.Equal(t, 1, fused[0].FusedRank)
	// Deduplication kept both raw signals on the merged candidate.
	assert.Equal(t, 0.8, fused[0].DenseSim)
	assert.Equal(t, 2.0, fused[0].LexScore)
}

func TestRetriever_DegradesWhenDenseFails(t *testing.T) {
	docs := memory.NewDocumentStore()
	seedChunks(t, docs, "c1", map[string]string{
		"k1": "alpha beta gamma", "k2": "unrelated text entirely",
	})

	vectors := newFakeVectorIndex()
	vectors.queryErr = errors.New("index offline")
	lexical := newFakeLexicalIndex()
	require.NoError(t, lexical.Index(context.Background(), domain.Chunk{ID: "k1", CollectionID: "c1", Text: "alpha beta gamma"}))

	r := NewRetriever(docs, vectors, lexical, newStubEmbedder(), domain.RetrievalConfig{})

	candidates, err := r.Retrieve(context.Background(), "c1", "alpha beta", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "k1", candidates[0].Chunk.ID)
}

func TestRetriever_DegradesWhenLexicalFails(t *testing.T) {
	docs := memory.NewDocumentStore()
	seedChunks(t, docs, "c1", map[string]string{"k1": "alpha beta gamma"})

	vectors := newFakeVectorIndex()
	require.NoError(t, vectors.Upsert(context.Background(), "c1", "k1", hashEmbed("alpha beta gamma"), nil))
	lexical := newFakeLexicalIndex()
	lexical.searchErr = errors.New("index offline")

	r := NewRetriever(docs, vectors, lexical, newStubEmbedder(), domain.RetrievalConfig{})

	candidates, err := r.Retrieve(context.Background(), "c1", "alpha beta", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "k1", candidates[0].Chunk.ID)
	assert.Greater(t, candidates[0].DenseSim, 0.5)
}

func TestRetriever_BothModesFailingIsAnError(t *testing.T) {
	docs := memory.NewDocumentStore()
	vectors := newFakeVectorIndex()
	vectors.queryErr = errors.New("dense offline")
	lexical := newFakeLexicalIndex()
	lexical.searchErr = errors.New("lexical offline")

	r := NewRetriever(docs, vectors, lexical, newStubEmbedder(), domain.RetrievalConfig{})

	_, err := r.Retrieve(context.Background(), "c1", "anything", 5)
	assert.Error(t, err)
}

func TestRetriever_HydrateSkipsDeletedChunks(t *testing.T) {
	docs := memory.NewDocumentStore()
	seedChunks(t, docs, "c1", map[string]string{"kept": "alpha beta"})

	vectors := newFakeVectorIndex()
	require.NoError(t, vectors.Upsert(context.Background(), "c1", "kept", hashEmbed("alpha beta"), nil))
	require.NoError(t, vectors.Upsert(context.Background(), "c1", "deleted", hashEmbed("alpha beta"), nil))

	r := NewRetriever(docs, vectors, newFakeLexicalIndex(), newStubEmbedder(), domain.RetrievalConfig{})

	candidates, err := r.Retrieve(context.Background(), "c1", "alpha beta", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "kept", candidates[0].Chunk.ID)
	assert.NotEmpty(t, candidates[0].Chunk.Text)
}
