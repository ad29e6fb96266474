package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

func TestDocumentStore_GetBySourceRef(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "d1", CollectionID: "c1", SourceRef: "notes/a.md",
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "d2", CollectionID: "c2", SourceRef: "notes/a.md",
	}))

	doc, err := store.GetBySourceRef(ctx, "c1", "notes/a.md")
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)

	_, err = store.GetBySourceRef(ctx, "c1", "notes/b.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunksOrdersBySeq(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c3", DocumentID: "d1", Seq: 2},
		{ID: "c1", DocumentID: "d1", Seq: 0},
		{ID: "c2", DocumentID: "d1", Seq: 1},
	}))

	chunks, err := store.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Seq)
	}
}

func TestDocumentStore_DeleteChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "d1", Seq: 0}}))
	require.NoError(t, store.DeleteChunks(ctx, "d1"))

	chunks, err := store.GetChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = store.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_QuestionsByCollection(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveQuestions(ctx, []domain.Question{
		{ID: "q1", CollectionID: "c1", Text: "What is tessera?"},
		{ID: "q2", CollectionID: "c2", Text: "Unrelated"},
	}))

	questions, err := store.QuestionsByCollection(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "q1", questions[0].ID)
}
