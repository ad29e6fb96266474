package services

import (
	"github.com/tessera-labs/tessera/internal/core/domain"
)

// groundedSentenceThreshold is the term-overlap level at which an
// answer sentence counts as supported by a passage.
const groundedSentenceThreshold = 0.3

// Evaluator scores a generated answer against the retrieved context.
type Evaluator struct{}

// NewEvaluator creates an answer evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate computes groundedness (the fraction of answer sentences with
// sufficient term overlap against at least one passage) and relevance
// (term overlap between the answer and the query).
func (e *Evaluator) Evaluate(answer, query string, passages []string) domain.Evaluation {
	return domain.Evaluation{
		Groundedness: e.groundedness(answer, passages),
		Relevance:    e.relevance(answer, query),
	}
}

func (e *Evaluator) groundedness(answer string, passages []string) float64 {
	sentences := splitSentences(answer)
	if len(sentences) == 0 || len(passages) == 0 {
		return 0
	}

	grounded := 0
	for _, sentence := range sentences {
		terms := termSet(sentence)
		if len(terms) == 0 {
			continue
		}
		for _, passage := range passages {
			if termOverlap(terms, passage) >= groundedSentenceThreshold {
				grounded++
				break
			}
		}
	}
	return clamp01(float64(grounded) / float64(len(sentences)))
}

func (e *Evaluator) relevance(answer, query string) float64 {
	terms := termSet(query)
	if len(terms) == 0 || answer == "" {
		return 0
	}
	return clamp01(termOverlap(terms, answer))
}
