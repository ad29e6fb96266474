package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/tessera/internal/chunker"
	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/logger"
)

// IngestionPipeline turns a submitted document into searchable state:
// chunking, embedding, vector and lexical indexing, and question
// generation. Documents within a collection are processed in parallel;
// the only shared write is the collection's aggregated status, which
// goes through a single-writer recompute under statusMu.
type IngestionPipeline struct {
	collections driven.CollectionStore
	docs        driven.DocumentStore
	embedder    driven.EmbeddingService
	vectors     driven.VectorIndex
	lexical     driven.LexicalIndex
	questions   *QuestionService
	cfg         domain.Config

	// statusMu serialises collection status recomputation so parallel
	// document workers never race on the aggregate.
	statusMu sync.Mutex
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(
	collections driven.CollectionStore,
	docs driven.DocumentStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	lexical driven.LexicalIndex,
	questions *QuestionService,
	cfg domain.Config,
) *IngestionPipeline {
	return &IngestionPipeline{
		collections: collections,
		docs:        docs,
		embedder:    embedder,
		vectors:     vectors,
		lexical:     lexical,
		questions:   questions,
		cfg:         cfg,
	}
}

// HandleJob adapts Ingest to the job tracker's handler contract.
func (p *IngestionPipeline) HandleJob(ctx context.Context, job domain.Job) error {
	return p.Ingest(ctx, job.Payload.DocumentID, job.Payload.Force)
}

// HandleReembedJob adapts Reembed to the job tracker's handler contract.
func (p *IngestionPipeline) HandleReembedJob(ctx context.Context, job domain.Job) error {
	return p.Reembed(ctx, job.Payload.CollectionID)
}

// Reembed re-ingests every non-excluded document in a collection under
// the currently configured embedder. The collection's model pin is
// released and all existing chunks are cleared up front, so the first
// re-embedded document does not collide with vectors of the old
// dimensionality.
func (p *IngestionPipeline) Reembed(ctx context.Context, collectionID string) error {
	logger.Section("Collection Re-embed")

	collection, err := p.collections.Get(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	collection.EmbedModel = ""
	collection.Dimensions = 0
	collection.UpdatedAt = time.Now()
	if err := p.collections.Save(ctx, collection); err != nil {
		return fmt.Errorf("release model pin: %w", err)
	}

	docs, err := p.docs.ListByCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	// Clear every document's chunks before re-ingesting any, so the
	// vector partition empties and accepts the new dimensionality.
	// Excluded documents are cleared too but not rebuilt.
	for i := range docs {
		if err := p.removeExistingChunks(ctx, &docs[i]); err != nil {
			return fmt.Errorf("clear chunks for %s: %w", docs[i].ID, err)
		}
	}

	var firstErr error
	for i := range docs {
		if docs[i].Excluded {
			continue
		}
		if err := p.Ingest(ctx, docs[i].ID, true); err != nil {
			logger.Warn("Re-embed document %s: %v", docs[i].ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Ingest runs the document state machine:
// pending -> chunking -> embedding -> ready | failed.
// Re-running on an already-ready document is a no-op unless forced.
func (p *IngestionPipeline) Ingest(ctx context.Context, documentID string, force bool) error {
	logger.Section("Document Ingestion")

	doc, err := p.docs.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if doc.Status == domain.DocumentStatusReady && !force {
		logger.Info("Document %s already ready, skipping", doc.ID)
		return nil
	}

	collection, err := p.collections.Get(ctx, doc.CollectionID)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	// A rerun (retry or force) starts clean: old chunks leave both
	// indexes before new ones are written.
	if err := p.removeExistingChunks(ctx, doc); err != nil {
		return err
	}

	chunks, err := p.chunkDocument(ctx, doc)
	if err != nil {
		return p.failDocument(ctx, doc, err)
	}

	embedded, err := p.embedChunks(ctx, collection, doc, chunks)
	if err != nil {
		return p.failDocument(ctx, doc, err)
	}

	coverage, err := p.questions.GenerateForDocument(ctx, collection.ID, embedded)
	if err != nil {
		// Questions are an enrichment: their failure degrades coverage,
		// never the document itself.
		logger.Warn("Question generation failed for document %s: %v", doc.ID, err)
	}
	doc.QuestionCoverage = coverage

	doc.Status = domain.DocumentStatusReady
	doc.FailReason = ""
	doc.UpdatedAt = time.Now()
	if err := p.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	if err := p.RecomputeCollectionStatus(ctx, collection.ID); err != nil {
		return err
	}

	logger.Info("Document %s ready: %d chunks, %.0f%% question coverage",
		doc.ID, len(embedded), coverage*100)
	return nil
}

// chunkDocument moves the document to chunking and splits its content.
func (p *IngestionPipeline) chunkDocument(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if err := p.setStatus(ctx, doc, domain.DocumentStatusChunking); err != nil {
		return nil, err
	}

	maxTokens := p.cfg.Chunking.MaxTokens
	if limit := p.embedder.MaxTokens(); limit > 0 && limit < maxTokens {
		maxTokens = limit
	}

	segments, err := chunker.Split(doc.Content, maxTokens, p.cfg.Chunking.OverlapTokens)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{
			ID:            uuid.New().String(),
			DocumentID:    doc.ID,
			CollectionID:  doc.CollectionID,
			Seq:           i,
			Text:          seg.Text,
			TokenCount:    seg.TokenCount,
			OverlapTokens: seg.OverlapTokens,
		}
	}

	logger.Debug("Document %s split into %d chunks (ceiling %d tokens)", doc.ID, len(chunks), maxTokens)
	return chunks, nil
}

// embedChunks validates token counts, embeds in batches with
// partial-failure isolation, and writes vectors plus lexical entries.
// Returns the chunks that embedded successfully.
func (p *IngestionPipeline) embedChunks(
	ctx context.Context, collection *domain.Collection, doc *domain.Document, chunks []domain.Chunk,
) ([]domain.Chunk, error) {
	if err := p.setStatus(ctx, doc, domain.DocumentStatusEmbedding); err != nil {
		return nil, err
	}

	// Token counts are validated against the model limit before any
	// call goes out. A chunk still over the limit here means the
	// chunker's ceiling was misconfigured above the model's.
	limit := p.embedder.MaxTokens()
	for _, chunk := range chunks {
		if limit > 0 && chunk.TokenCount > limit {
			return nil, fmt.Errorf("%w: chunk %d has %d tokens, model limit is %d",
				domain.ErrTokenLimitExceeded, chunk.Seq, chunk.TokenCount, limit)
		}
	}

	if err := p.enforceModel(ctx, collection); err != nil {
		return nil, err
	}

	batchSize := p.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	var embedded []domain.Chunk
	failed := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		ok, err := p.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		failed += len(batch) - len(ok)
		embedded = append(embedded, ok...)
	}

	if len(embedded) == 0 {
		return nil, fmt.Errorf("%w: no chunk in document %s could be embedded",
			domain.ErrTokenLimitExceeded, doc.ID)
	}
	if failed > 0 {
		logger.Warn("Document %s: %d of %d chunks failed to embed, continuing with the rest",
			doc.ID, failed, len(chunks))
	}

	// Persist all chunks, including failed ones, so the failure is
	// recorded rather than silently dropped.
	if err := p.docs.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	for i := range embedded {
		chunk := embedded[i]
		if err := p.vectors.Upsert(ctx, chunk.CollectionID, chunk.ID, chunk.Embedding, map[string]string{
			"document_id": chunk.DocumentID,
		}); err != nil {
			return nil, fmt.Errorf("upsert vector: %w", err)
		}
		if err := p.lexical.Index(ctx, chunk); err != nil {
			return nil, fmt.Errorf("index chunk: %w", err)
		}
	}

	return embedded, nil
}

// embedBatch embeds one batch. A whole-batch failure falls back to
// per-chunk calls so one bad chunk fails alone instead of aborting the
// document; transient provider errors propagate for the job retry.
func (p *IngestionPipeline) embedBatch(ctx context.Context, batch []domain.Chunk) ([]domain.Chunk, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	vectors, tokenCounts, err := p.embedder.EmbedBatch(ctx, texts)
	if err == nil {
		ok := make([]domain.Chunk, len(batch))
		for i := range batch {
			batch[i].Embedding = vectors[i]
			batch[i].EmbedModel = p.embedder.ModelName()
			if i < len(tokenCounts) && tokenCounts[i] > 0 {
				batch[i].TokenCount = tokenCounts[i]
			}
			ok[i] = batch[i]
		}
		return ok, nil
	}

	if errors.Is(err, domain.ErrAdapterUnavailable) {
		return nil, err
	}

	logger.Warn("Batch embed failed (%v), isolating per chunk", err)
	var ok []domain.Chunk
	for i := range batch {
		vec, cerr := p.embedder.Embed(ctx, batch[i].Text)
		switch {
		case cerr == nil:
			batch[i].Embedding = vec
			batch[i].EmbedModel = p.embedder.ModelName()
			ok = append(ok, batch[i])
		case errors.Is(cerr, domain.ErrAdapterUnavailable):
			return nil, cerr
		default:
			batch[i].EmbedFailed = true
			logger.Warn("Chunk %s failed to embed: %v", batch[i].ID, cerr)
		}
	}
	return ok, nil
}

// enforceModel pins the collection to one embedding model and
// dimensionality, set on first embed and immutable after.
func (p *IngestionPipeline) enforceModel(ctx context.Context, collection *domain.Collection) error {
	model := p.embedder.ModelName()
	dims := p.embedder.Dimensions()

	if collection.EmbedModel == "" {
		collection.EmbedModel = model
		collection.Dimensions = dims
		collection.UpdatedAt = time.Now()
		return p.collections.Save(ctx, collection)
	}

	if collection.EmbedModel != model || collection.Dimensions != dims {
		return fmt.Errorf("%w: collection uses %s (%dd), embedder is %s (%dd)",
			domain.ErrModelMismatch, collection.EmbedModel, collection.Dimensions, model, dims)
	}
	return nil
}

// removeExistingChunks clears a document's previous chunks from both
// retrieval indexes and the store before a rerun.
func (p *IngestionPipeline) removeExistingChunks(ctx context.Context, doc *domain.Document) error {
	old, err := p.docs.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}
	if len(old) == 0 {
		return nil
	}
	for _, chunk := range old {
		if err := p.vectors.Delete(ctx, chunk.CollectionID, chunk.ID); err != nil {
			logger.Warn("Delete vector %s: %v", chunk.ID, err)
		}
		if err := p.lexical.Delete(ctx, chunk.ID); err != nil {
			logger.Warn("Delete lexical entry %s: %v", chunk.ID, err)
		}
	}
	if err := p.docs.DeleteChunks(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// failDocument records a failure with its specific reason, recomputes
// the collection aggregate, and propagates the error to the job layer.
func (p *IngestionPipeline) failDocument(ctx context.Context, doc *domain.Document, cause error) error {
	doc.Status = domain.DocumentStatusFailed
	doc.FailReason = failReason(cause)
	doc.UpdatedAt = time.Now()
	if err := p.docs.SaveDocument(ctx, doc); err != nil {
		logger.Warn("Save failed document %s: %v", doc.ID, err)
	}
	if err := p.RecomputeCollectionStatus(ctx, doc.CollectionID); err != nil {
		logger.Warn("Recompute collection status: %v", err)
	}
	logger.Warn("Document %s failed: %s", doc.ID, doc.FailReason)
	return cause
}

// failReason classifies an error into a specific, stable reason string.
// A generic "failed" hides exactly the information an operator needs.
func failReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenLimitExceeded):
		return "token_limit_exceeded"
	case errors.Is(err, domain.ErrModelMismatch):
		return "model_mismatch"
	case errors.Is(err, domain.ErrAdapterUnavailable):
		return "adapter_unavailable"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return err.Error()
	}
}

// setStatus advances the document state machine and persists it.
func (p *IngestionPipeline) setStatus(ctx context.Context, doc *domain.Document, status domain.DocumentStatus) error {
	doc.Status = status
	doc.UpdatedAt = time.Now()
	if err := p.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	logger.Debug("Document %s -> %s", doc.ID, status)
	return nil
}

// RecomputeCollectionStatus scans member documents and writes the
// aggregate. Only the ingestion pipeline calls this (single-writer
// rule); the scan-then-write avoids read-modify-write counter races.
func (p *IngestionPipeline) RecomputeCollectionStatus(ctx context.Context, collectionID string) error {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	docs, err := p.docs.ListByCollection(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	collection, err := p.collections.Get(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	status := domain.AggregateStatus(docs)
	if status == collection.Status {
		return nil
	}
	collection.Status = status
	collection.UpdatedAt = time.Now()
	if err := p.collections.Save(ctx, collection); err != nil {
		return fmt.Errorf("save collection: %w", err)
	}
	logger.Info("Collection %s -> %s", collectionID, status)
	return nil
}
