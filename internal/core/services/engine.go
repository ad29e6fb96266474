package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/core/ports/driving"
)

// Ensure Engine implements the driving ports.
var (
	_ driving.IngestService = (*Engine)(nil)
	_ driving.QueryService  = (*Engine)(nil)
	_ driving.JobService    = (*Engine)(nil)
)

// Engine is the boundary facade over both pipelines and the job
// tracker. Driving adapters (CLI, filesystem watcher) talk to it.
type Engine struct {
	collections driven.CollectionStore
	docs        driven.DocumentStore
	tracker     *JobTracker
	ingestion   *IngestionPipeline
	query       *QueryPipeline
	questions   *QuestionService
}

// NewEngine wires the engine facade.
func NewEngine(
	collections driven.CollectionStore,
	docs driven.DocumentStore,
	tracker *JobTracker,
	ingestion *IngestionPipeline,
	query *QueryPipeline,
	questions *QuestionService,
) *Engine {
	return &Engine{
		collections: collections,
		docs:        docs,
		tracker:     tracker,
		ingestion:   ingestion,
		query:       query,
		questions:   questions,
	}
}

// CreateCollection creates an empty collection with a per-owner unique
// name.
func (e *Engine) CreateCollection(ctx context.Context, owner, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: collection name is empty", domain.ErrInvalidInput)
	}

	existing, err := e.collections.GetByName(ctx, owner, name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check collection name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: collection %q", domain.ErrAlreadyExists, name)
	}

	now := time.Now()
	collection := &domain.Collection{
		ID:        uuid.New().String(),
		Owner:     owner,
		Name:      name,
		Status:    domain.CollectionStatusEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.collections.Save(ctx, collection); err != nil {
		return nil, fmt.Errorf("save collection: %w", err)
	}
	return collection, nil
}

// SubmitDocument registers (or re-registers) a document and enqueues
// its ingestion job.
func (e *Engine) SubmitDocument(ctx context.Context, collectionID, sourceRef, content string, force bool) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: document content is empty", domain.ErrInvalidInput)
	}
	if _, err := e.collections.Get(ctx, collectionID); err != nil {
		return "", fmt.Errorf("get collection: %w", err)
	}

	now := time.Now()
	doc, err := e.docs.GetBySourceRef(ctx, collectionID, sourceRef)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{
			ID:           uuid.New().String(),
			CollectionID: collectionID,
			SourceRef:    sourceRef,
			Content:      content,
			Status:       domain.DocumentStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if serr := e.docs.SaveDocument(ctx, doc); serr != nil {
			return "", fmt.Errorf("save document: %w", serr)
		}
	case err != nil:
		return "", fmt.Errorf("get document: %w", err)
	default:
		// Known document. Without force an already-ready document's
		// ingestion is a no-op; with force (or after a failure) the
		// content refreshes and the pipeline reruns.
		if force || doc.Status != domain.DocumentStatusReady {
			doc.Content = content
			doc.Status = domain.DocumentStatusPending
			doc.FailReason = ""
			doc.Excluded = false
			doc.UpdatedAt = now
			if serr := e.docs.SaveDocument(ctx, doc); serr != nil {
				return "", fmt.Errorf("save document: %w", serr)
			}
		}
	}

	job, err := e.tracker.Enqueue(ctx, domain.JobKindIngestDocument, domain.JobPayload{
		CollectionID: collectionID,
		DocumentID:   doc.ID,
		Force:        force,
	})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// ReembedCollection enqueues a re-embed job for a collection.
func (e *Engine) ReembedCollection(ctx context.Context, collectionID string) (string, error) {
	if _, err := e.collections.Get(ctx, collectionID); err != nil {
		return "", fmt.Errorf("get collection: %w", err)
	}

	job, err := e.tracker.Enqueue(ctx, domain.JobKindReembedCollection, domain.JobPayload{
		CollectionID: collectionID,
		Force:        true,
	})
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

// ExcludeDocument marks a failed document as deliberately excluded so
// it stops blocking its collection.
func (e *Engine) ExcludeDocument(ctx context.Context, documentID string) error {
	doc, err := e.docs.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	if doc.Status != domain.DocumentStatusFailed {
		return fmt.Errorf("%w: document %s is %s, only failed documents can be excluded",
			domain.ErrInvalidInput, documentID, doc.Status)
	}
	doc.Excluded = true
	doc.UpdatedAt = time.Now()
	if err := e.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return e.ingestion.RecomputeCollectionStatus(ctx, doc.CollectionID)
}

// CollectionStatus reports the collection aggregate, per-status
// document counts, and question coverage.
func (e *Engine) CollectionStatus(ctx context.Context, collectionID string) (*driving.CollectionReport, error) {
	collection, err := e.collections.Get(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	docs, err := e.docs.ListByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	report := &driving.CollectionReport{
		Collection:        *collection,
		DocumentsByStatus: make(map[domain.DocumentStatus]int),
	}
	for i := range docs {
		report.DocumentsByStatus[docs[i].Status]++
		chunks, err := e.docs.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get chunks: %w", err)
		}
		report.TotalChunks += len(chunks)
	}

	coverage, err := e.questions.Coverage(ctx, collectionID, report.TotalChunks)
	if err != nil {
		return nil, fmt.Errorf("question coverage: %w", err)
	}
	report.QuestionCoverage = coverage

	questions, err := e.docs.QuestionsByCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	report.Questions = questions

	return report, nil
}

// Search answers a query within a session.
func (e *Engine) Search(ctx context.Context, collectionID, sessionID, query string) (*domain.SearchOutput, error) {
	return e.query.Search(ctx, collectionID, sessionID, query)
}

// Status returns a job's externally visible state.
func (e *Engine) Status(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	return e.tracker.Status(ctx, jobID)
}

// DeadLetters returns jobs awaiting operator inspection.
func (e *Engine) DeadLetters(ctx context.Context) ([]domain.Job, error) {
	return e.tracker.DeadLetters(ctx)
}

// Resubmit enqueues a fresh job with a dead-lettered job's payload.
func (e *Engine) Resubmit(ctx context.Context, jobID string) (string, error) {
	return e.tracker.Resubmit(ctx, jobID)
}
