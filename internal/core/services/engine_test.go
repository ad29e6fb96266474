package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/adapters/driven/storage/memory"
	"github.com/tessera-labs/tessera/internal/core/domain"
)

func newTestEngine(t *testing.T) (*Engine, *JobTracker, *ingestFixture) {
	t.Helper()
	f := newIngestFixture(t)
	jobs := memory.NewJobStore()
	tracker := NewJobTracker(jobs, domain.JobsConfig{MaxAttempts: 3})
	tracker.RegisterHandler(domain.JobKindIngestDocument, f.pipeline.HandleJob)

	cfg := domain.DefaultConfig()
	questions := NewQuestionService(f.docs, nil, cfg.Questions)
	retriever := NewRetriever(f.docs, f.vectors, f.lexical, f.embedder, cfg.Retrieval)
	query := NewQueryPipeline(
		f.collections, memory.NewSessionStore(),
		NewContextManager(cfg.Session), retriever,
		NewReranker(cfg.Retrieval.RerankLimit),
		NewConfidenceScorer(), NewEvaluator(), nil, cfg,
	)
	return NewEngine(f.collections, f.docs, tracker, f.pipeline, query, questions), tracker, f
}

// runJob executes a queued job synchronously, the way a worker would.
func runJob(t *testing.T, tracker *JobTracker, f *ingestFixture, jobID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tracker.MarkRunning(ctx, jobID))
	job, err := tracker.store.Get(ctx, jobID)
	require.NoError(t, err)
	if herr := f.pipeline.HandleJob(ctx, *job); herr != nil {
		_, ferr := tracker.MarkFailed(ctx, jobID, herr)
		require.NoError(t, ferr)
		return
	}
	require.NoError(t, tracker.MarkSucceeded(ctx, jobID))
}

func TestEngine_CreateCollection(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusEmpty, collection.Status)
	assert.NotEmpty(t, collection.ID)

	// Duplicate name for the same owner is rejected.
	_, err = engine.CreateCollection(ctx, "alice", "notes")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Another owner can reuse the name.
	_, err = engine.CreateCollection(ctx, "bob", "notes")
	assert.NoError(t, err)

	_, err = engine.CreateCollection(ctx, "alice", "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_SubmitDocumentEnqueuesIngestion(t *testing.T) {
	engine, tracker, f := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)

	jobID, err := engine.SubmitDocument(ctx, collection.ID, "a.txt", loremTokens(30), false)
	require.NoError(t, err)

	status, err := engine.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, status.State)

	runJob(t, tracker, f, jobID)

	report, err := engine.CollectionStatus(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusReady, report.Collection.Status)
	assert.Equal(t, 1, report.DocumentsByStatus[domain.DocumentStatusReady])
	assert.NotZero(t, report.TotalChunks)
	assert.Greater(t, report.QuestionCoverage, 0.0)
	assert.NotEmpty(t, report.Questions)
}

func TestEngine_SubmitDocumentIsIdempotentBySourceRef(t *testing.T) {
	engine, tracker, f := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)

	first, err := engine.SubmitDocument(ctx, collection.ID, "a.txt", loremTokens(30), false)
	require.NoError(t, err)
	runJob(t, tracker, f, first)

	doc, err := f.docs.GetBySourceRef(ctx, collection.ID, "a.txt")
	require.NoError(t, err)

	// Resubmitting the same source creates no second document.
	second, err := engine.SubmitDocument(ctx, collection.ID, "a.txt", loremTokens(30), false)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	docs, err := f.docs.ListByCollection(ctx, collection.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestEngine_SubmitDocumentValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)

	_, err = engine.SubmitDocument(ctx, collection.ID, "a.txt", "   ", false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.SubmitDocument(ctx, "no-such-collection", "a.txt", "content here", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_ExcludeDocumentRequiresFailure(t *testing.T) {
	engine, tracker, f := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)

	// Every embedding call for the bad document fails, so it lands in
	// the failed state while the good one completes.
	f.embedder.batchErr = errors.New("batch rejected")
	f.embedder.embedErr = errors.New("bad input")
	f.embedder.embedErrSubstr = "poison"

	goodID, err := engine.SubmitDocument(ctx, collection.ID, "good.txt", loremTokens(30), false)
	require.NoError(t, err)
	badID, err := engine.SubmitDocument(ctx, collection.ID, "bad.txt", "poison pure poison and more poison", false)
	require.NoError(t, err)
	runJob(t, tracker, f, goodID)
	runJob(t, tracker, f, badID)

	good, err := f.docs.GetBySourceRef(ctx, collection.ID, "good.txt")
	require.NoError(t, err)
	bad, err := f.docs.GetBySourceRef(ctx, collection.ID, "bad.txt")
	require.NoError(t, err)
	require.Equal(t, domain.DocumentStatusFailed, bad.Status)

	// Only failed documents can be excluded.
	assert.ErrorIs(t, engine.ExcludeDocument(ctx, good.ID), domain.ErrInvalidInput)

	require.NoError(t, engine.ExcludeDocument(ctx, bad.ID))

	report, err := engine.CollectionStatus(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusReady, report.Collection.Status)
}

func TestEngine_ReembedCollectionEnqueuesJob(t *testing.T) {
	engine, tracker, _ := newTestEngine(t)
	ctx := context.Background()

	collection, err := engine.CreateCollection(ctx, "alice", "notes")
	require.NoError(t, err)

	jobID, err := engine.ReembedCollection(ctx, collection.ID)
	require.NoError(t, err)

	status, err := engine.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, status.State)

	job, err := tracker.store.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindReembedCollection, job.Kind)
	assert.Equal(t, collection.ID, job.Payload.CollectionID)

	_, err = engine.ReembedCollection(ctx, "no-such-collection")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_ResubmitDeadLetteredJob(t *testing.T) {
	engine, tracker, _ := newTestEngine(t)
	ctx := context.Background()

	job, err := tracker.Enqueue(ctx, domain.JobKindIngestDocument, domain.JobPayload{DocumentID: "ghost"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, tracker.MarkRunning(ctx, job.ID))
		_, err = tracker.MarkFailed(ctx, job.ID, domain.ErrAdapterUnavailable)
		require.NoError(t, err)
	}

	letters, err := engine.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 1)

	freshID, err := engine.Resubmit(ctx, letters[0].ID)
	require.NoError(t, err)

	status, err := engine.Status(ctx, freshID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, status.State)
}
