package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/logger"
)

// answerInstruction is the default generation task description.
const answerInstruction = "Answer the question using the provided passages. " +
	"Cite only information the passages contain."

// regenerateInstruction is used for the single regeneration attempt
// when the first answer scores below the groundedness threshold.
const regenerateInstruction = "Answer the question strictly using the provided passages. " +
	"If the passages do not contain the answer, say that they do not."

// QueryPipeline orchestrates one query end to end: context isolation,
// hybrid retrieval, reranking, confidence scoring, passage truncation,
// generation, and evaluation.
//
// Queries for different sessions run fully in parallel. Calls on the
// same session are serialised through a per-session lock so history
// stays consistent and turns land in submission order.
type QueryPipeline struct {
	collections driven.CollectionStore
	sessions    driven.SessionStore
	contextMgr  *ContextManager
	retriever   *Retriever
	reranker    *Reranker
	scorer      *ConfidenceScorer
	evaluator   *Evaluator
	gen         driven.GenerationService
	cfg         domain.Config

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// NewQueryPipeline creates a query pipeline. The gen parameter is
// optional (can be nil); queries then return passages without answers.
func NewQueryPipeline(
	collections driven.CollectionStore,
	sessions driven.SessionStore,
	contextMgr *ContextManager,
	retriever *Retriever,
	reranker *Reranker,
	scorer *ConfidenceScorer,
	evaluator *Evaluator,
	gen driven.GenerationService,
	cfg domain.Config,
) *QueryPipeline {
	return &QueryPipeline{
		collections:  collections,
		sessions:     sessions,
		contextMgr:   contextMgr,
		retriever:    retriever,
		reranker:     reranker,
		scorer:       scorer,
		evaluator:    evaluator,
		gen:          gen,
		cfg:          cfg,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// Search answers a query against a collection within a session.
func (p *QueryPipeline) Search(ctx context.Context, collectionID, sessionID, query string) (*domain.SearchOutput, error) {
	logger.Section("Query Execution")
	logger.Debug("Query: %q (collection %s, session %s)", query, collectionID, sessionID)

	collection, err := p.collections.Get(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if collection.Status == domain.CollectionStatusEmpty {
		return nil, fmt.Errorf("%w: collection %s has no documents", domain.ErrCollectionNotReady, collectionID)
	}

	unlock := p.lockSession(sessionID)
	defer unlock()

	session, err := p.loadSession(ctx, collectionID, sessionID)
	if err != nil {
		return nil, err
	}

	isolated, window, err := p.contextMgr.BuildContext(session, query)
	if err != nil {
		return nil, err
	}
	logger.Debug("Isolated query: %q, context window: %d turns", isolated, len(window))

	// Retrieve a wider set than we return; reranking decides the final
	// ordering within it.
	candidates, err := p.retriever.Retrieve(ctx, collectionID, isolated, p.cfg.Retrieval.TopK*2)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	candidates = p.reranker.Rerank(isolated, candidates)
	p.scorer.Score(candidates)
	if len(candidates) > p.cfg.Retrieval.TopK {
		candidates = candidates[:p.cfg.Retrieval.TopK]
	}

	output := &domain.SearchOutput{
		Results:           toResults(candidates),
		OverallConfidence: p.scorer.Overall(candidates),
		RewrittenQuery:    isolated,
	}

	// Retrieval work may be reused by a retry; generation cost may not.
	// Stop here if the caller already gave up.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.gen == nil {
		output.GenerationUnavailable = true
		return output, nil
	}

	prompt, err := p.buildPrompt(isolated, window, candidates)
	if err != nil {
		return nil, err
	}

	answer, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		// Evidence still reaches the caller when synthesis fails.
		logger.Warn("Generation failed, returning passages only: %v", err)
		output.GenerationUnavailable = true
		return output, nil
	}

	output.Answer = answer
	output.Evaluation = p.evaluator.Evaluate(answer, isolated, prompt.Passages)

	// One bounded regeneration when the answer is weakly grounded.
	if output.Evaluation.Groundedness < p.cfg.Generation.GroundednessThreshold {
		logger.Info("Groundedness %.2f below threshold %.2f, regenerating once",
			output.Evaluation.Groundedness, p.cfg.Generation.GroundednessThreshold)
		prompt.Instruction = regenerateInstruction
		if retry, rerr := p.gen.Generate(ctx, prompt); rerr == nil {
			if eval := p.evaluator.Evaluate(retry, isolated, prompt.Passages); eval.Groundedness > output.Evaluation.Groundedness {
				output.Answer = retry
				output.Evaluation = eval
			}
		}
	}

	turn := domain.Turn{Query: query, Answer: output.Answer, CreatedAt: time.Now()}
	p.contextMgr.AppendTurn(session, turn)
	if err := p.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return output, nil
}

// buildPrompt assembles the generation input, dropping whole passages
// by ascending confidence until the provider's budget fits. Passages
// are never cut mid-text.
func (p *QueryPipeline) buildPrompt(isolated string, window []domain.Turn, candidates []Candidate) (driven.PromptParts, error) {
	// Keep passages ordered best-first but drop from the low-confidence
	// end when over budget.
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	prompt := driven.PromptParts{
		Instruction: answerInstruction,
		Query:       isolated,
		History:     window,
	}
	for _, cand := range sorted {
		prompt.Passages = append(prompt.Passages, cand.Chunk.Text)
	}

	budget := p.gen.MaxInputTokens() - p.cfg.Generation.PromptOverheadTokens
	for len(prompt.Passages) > 0 && prompt.Tokens() > budget {
		prompt.Passages = prompt.Passages[:len(prompt.Passages)-1]
	}

	if prompt.Tokens() > budget {
		// Truncation already removed every passage; the remaining
		// overflow means the budgets are misconfigured.
		logger.Warn("Prompt still over budget with no passages: %d > %d tokens", prompt.Tokens(), budget)
		return prompt, fmt.Errorf("%w: base prompt is %d tokens, budget is %d",
			domain.ErrContextTooLarge, prompt.Tokens(), budget)
	}
	return prompt, nil
}

// loadSession fetches or creates the conversation session.
func (p *QueryPipeline) loadSession(ctx context.Context, collectionID, sessionID string) (*domain.ConversationSession, error) {
	session, err := p.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ConversationSession{
			ID:           sessionID,
			CollectionID: collectionID,
			CreatedAt:    time.Now(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.CollectionID != collectionID {
		return nil, fmt.Errorf("%w: session %s belongs to collection %s",
			domain.ErrInvalidInput, sessionID, session.CollectionID)
	}
	return session, nil
}

// lockSession serialises concurrent calls on one session.
func (p *QueryPipeline) lockSession(sessionID string) func() {
	p.mu.Lock()
	lock, ok := p.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		p.sessionLocks[sessionID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// toResults converts candidates to the output representation.
func toResults(candidates []Candidate) []domain.QueryResult {
	results := make([]domain.QueryResult, len(candidates))
	for i, cand := range candidates {
		results[i] = domain.QueryResult{
			Chunk:      cand.Chunk,
			Score:      cand.Fused,
			Confidence: cand.Confidence,
		}
	}
	return results
}
