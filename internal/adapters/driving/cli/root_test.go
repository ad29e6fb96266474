package cli

import (
	"context"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driving"
)

// setupTestServices installs mock services and returns a cleanup that
// restores whatever was wired before.
func setupTestServices() func() {
	oldIngest, oldQuery, oldJobs := ingestService, queryService, jobService
	ingestService = &mockIngestService{}
	queryService = &mockQueryService{}
	jobService = &mockJobService{}
	return func() {
		ingestService, queryService, jobService = oldIngest, oldQuery, oldJobs
	}
}

type mockIngestService struct{}

var _ driving.IngestService = (*mockIngestService)(nil)

func (m *mockIngestService) CreateCollection(_ context.Context, owner, name string) (*domain.Collection, error) {
	return &domain.Collection{
		ID: "col-123", Owner: owner, Name: name,
		Status:    domain.CollectionStatusEmpty,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}, nil
}

func (m *mockIngestService) SubmitDocument(_ context.Context, _, _, _ string, _ bool) (string, error) {
	return "job-1", nil
}

func (m *mockIngestService) ReembedCollection(_ context.Context, _ string) (string, error) {
	return "job-2", nil
}

func (m *mockIngestService) ExcludeDocument(_ context.Context, _ string) error {
	return nil
}

func (m *mockIngestService) CollectionStatus(_ context.Context, collectionID string) (*driving.CollectionReport, error) {
	return &driving.CollectionReport{
		Collection: domain.Collection{
			ID: collectionID, Owner: "local", Name: "notes",
			Status: domain.CollectionStatusReady, EmbedModel: "test-embed", Dimensions: 8,
		},
		DocumentsByStatus: map[domain.DocumentStatus]int{domain.DocumentStatusReady: 2},
		TotalChunks:       7,
		QuestionCoverage:  0.5,
		Questions:         []domain.Question{{ID: "q1", Text: "What is tested?"}},
	}, nil
}

type mockQueryService struct {
	lastSessionID string
}

var _ driving.QueryService = (*mockQueryService)(nil)

func (m *mockQueryService) Search(_ context.Context, _, sessionID, query string) (*domain.SearchOutput, error) {
	m.lastSessionID = sessionID
	return &domain.SearchOutput{
		Answer: "A grounded answer.",
		Results: []domain.QueryResult{
			{
				Chunk:      domain.Chunk{ID: "ch-1", DocumentID: "doc-1", Text: "supporting passage"},
				Score:      0.9,
				Confidence: 0.85,
			},
		},
		OverallConfidence: 0.85,
		RewrittenQuery:    query,
	}, nil
}

type mockJobService struct{}

var _ driving.JobService = (*mockJobService)(nil)

func (m *mockJobService) Status(_ context.Context, jobID string) (*domain.JobStatus, error) {
	return &domain.JobStatus{JobID: jobID, State: domain.JobStateQueued, Attempts: 1}, nil
}

func (m *mockJobService) DeadLetters(_ context.Context) ([]domain.Job, error) {
	return []domain.Job{{
		ID: "job-dead", Kind: domain.JobKindIngestDocument,
		State: domain.JobStateDeadLettered, Attempts: 3, LastError: "adapter unavailable",
	}}, nil
}

func (m *mockJobService) Resubmit(_ context.Context, _ string) (string, error) {
	return "job-9", nil
}
