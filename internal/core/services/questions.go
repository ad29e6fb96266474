package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/logger"
)

// QuestionService derives candidate questions from chunks, for search
// suggestions and coverage evaluation. The generation backend is
// optional; without one a lexical fallback still produces questions so
// coverage never silently drops to zero.
type QuestionService struct {
	docStore driven.DocumentStore
	gen      driven.GenerationService
	cfg      domain.QuestionsConfig
}

// NewQuestionService creates a question service. The gen parameter is
// optional (can be nil).
func NewQuestionService(docStore driven.DocumentStore, gen driven.GenerationService, cfg domain.QuestionsConfig) *QuestionService {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 8
	}
	if cfg.PerChunk <= 0 {
		cfg.PerChunk = 2
	}
	return &QuestionService{
		docStore: docStore,
		gen:      gen,
		cfg:      cfg,
	}
}

// GenerateForDocument generates questions over a sample of the
// document's chunks chosen to maximise coverage, deduplicates them
// against the collection's existing set, and returns the document's
// question coverage: chunks referenced by at least one question over
// total chunks.
func (s *QuestionService) GenerateForDocument(
	ctx context.Context, collectionID string, chunks []domain.Chunk,
) (float64, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	existing, err := s.docStore.QuestionsByCollection(ctx, collectionID)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	covered := make(map[string]bool)
	for _, q := range existing {
		seen[domain.NormalizeQuestion(q.Text)] = true
		if q.ChunkID != "" {
			covered[q.ChunkID] = true
		}
	}

	sample := strideSample(chunks, s.cfg.SampleSize)
	logger.Debug("Question generation: sampling %d of %d chunks", len(sample), len(chunks))

	now := time.Now()
	var fresh []domain.Question
	for _, chunk := range sample {
		texts := s.questionsFor(ctx, chunk)
		for _, text := range texts {
			norm := domain.NormalizeQuestion(text)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			covered[chunk.ID] = true
			fresh = append(fresh, domain.Question{
				ID:           uuid.New().String(),
				CollectionID: collectionID,
				ChunkID:      chunk.ID,
				Text:         text,
				CreatedAt:    now,
			})
		}
	}

	if len(fresh) > 0 {
		if err := s.docStore.SaveQuestions(ctx, fresh); err != nil {
			return 0, fmt.Errorf("save questions: %w", err)
		}
	}

	coveredCount := 0
	for _, chunk := range chunks {
		if covered[chunk.ID] {
			coveredCount++
		}
	}
	coverage := float64(coveredCount) / float64(len(chunks))
	logger.Info("Question coverage: %.0f%% (%d/%d chunks)", coverage*100, coveredCount, len(chunks))
	return coverage, nil
}

// Coverage recomputes question coverage for a whole collection.
func (s *QuestionService) Coverage(ctx context.Context, collectionID string, totalChunks int) (float64, error) {
	if totalChunks == 0 {
		return 0, nil
	}
	questions, err := s.docStore.QuestionsByCollection(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	covered := make(map[string]bool)
	for _, q := range questions {
		if q.ChunkID != "" {
			covered[q.ChunkID] = true
		}
	}
	return float64(len(covered)) / float64(totalChunks), nil
}

// questionsFor produces candidate question texts for one chunk, via the
// generation backend when available, falling back to a term-based
// template otherwise.
func (s *QuestionService) questionsFor(ctx context.Context, chunk domain.Chunk) []string {
	if s.gen != nil {
		prompt := driven.PromptParts{
			Instruction: fmt.Sprintf(
				"Write %d short, standalone questions that the following passage answers. One question per line, no numbering.",
				s.cfg.PerChunk),
			Passages: []string{chunk.Text},
		}
		raw, err := s.gen.Generate(ctx, prompt)
		if err == nil {
			if qs := parseQuestionLines(raw, s.cfg.PerChunk); len(qs) > 0 {
				return qs
			}
		} else {
			logger.Warn("Question generation failed for chunk %s: %v (using fallback)", chunk.ID, err)
		}
	}
	return fallbackQuestions(chunk.Text)
}

// strideSample picks up to n chunks spread evenly across the sequence,
// always including the first and last. Sampling only the first n chunks
// leaves the document tail uncovered, which is exactly the failure mode
// coverage tracking exists to catch.
func strideSample(chunks []domain.Chunk, n int) []domain.Chunk {
	if len(chunks) <= n {
		return chunks
	}
	sample := make([]domain.Chunk, 0, n)
	// n-1 equal strides from first to last index.
	step := float64(len(chunks)-1) / float64(n-1)
	prev := -1
	for i := 0; i < n; i++ {
		idx := int(float64(i)*step + 0.5)
		if idx >= len(chunks) {
			idx = len(chunks) - 1
		}
		if idx == prev {
			continue
		}
		prev = idx
		sample = append(sample, chunks[idx])
	}
	return sample
}

// parseQuestionLines extracts up to max question lines from generated
// text, stripping list markers.
func parseQuestionLines(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) >= max {
			break
		}
	}
	return out
}

// fallbackQuestions builds a single template question from the chunk's
// most distinctive terms so lexical search on the question still lands
// on the chunk.
func fallbackQuestions(text string) []string {
	terms := significantTerms(text, 6)
	if len(terms) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("What does the document say about %s?", strings.Join(terms, " "))}
}

// significantTerms returns up to n distinct terms longer than three
// runes, in order of first appearance.
func significantTerms(text string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range domain.Tokens(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if len([]rune(tok)) <= 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) >= n {
			break
		}
	}
	return out
}
