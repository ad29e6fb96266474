package driven

import (
	"context"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// PromptParts is the structured input to answer generation. The isolated
// query and the conversation history travel as separate fields: history
// shapes the answer's phrasing but never leaks into retrieval.
type PromptParts struct {
	// Instruction is the system-level task description.
	Instruction string

	// Query is the isolated user query.
	Query string

	// History is the bounded context window of prior turns.
	History []domain.Turn

	// Passages are the retrieved chunks, best first.
	Passages []string
}

// Tokens returns the approximate token cost of the whole prompt.
func (p PromptParts) Tokens() int {
	total := domain.TokenCount(p.Instruction) + domain.TokenCount(p.Query)
	for _, t := range p.History {
		total += t.Tokens()
	}
	for _, passage := range p.Passages {
		total += domain.TokenCount(passage)
	}
	return total
}

// GenerationService synthesises answer text from a query and retrieved
// passages. This is an optional service - when nil, queries still return
// retrieved passages with the generation-unavailable flag set.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Ollama (local models)
type GenerationService interface {
	// Generate produces answer text for the prompt. Provider failures
	// are reported wrapping domain.ErrGenerationUnavailable; prompts
	// over the input budget wrap domain.ErrContextTooLarge.
	Generate(ctx context.Context, prompt PromptParts) (string, error)

	// MaxInputTokens returns the provider's declared input budget.
	// The query pipeline truncates passages to respect it.
	MaxInputTokens() int

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
