// Package ollama provides a generation service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "llama3.2"
	DefaultTimeout        = 120 * time.Second
	DefaultMaxInputTokens = 8192
)

// Config holds configuration for the Ollama generation service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxInputTokens is the model's context budget (default: 8192).
	MaxInputTokens int
}

// GenerationService synthesises answers using the Ollama chat API.
type GenerationService struct {
	client         *http.Client
	baseURL        string
	model          string
	maxInputTokens int
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatMsg is the Ollama chat message format.
type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// NewGenerationService creates a new Ollama generation service.
func NewGenerationService(cfg Config) *GenerationService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputTokens == 0 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}

	return &GenerationService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		maxInputTokens: cfg.MaxInputTokens,
	}
}

// Generate produces answer text for the prompt.
func (s *GenerationService) Generate(ctx context.Context, prompt driven.PromptParts) (string, error) {
	reqBody := chatRequest{
		Model:    s.model,
		Messages: buildMessages(prompt),
		Stream:   false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return "", fmt.Errorf("%w: ollama status %d", domain.ErrGenerationUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: ollama status %d: %s", domain.ErrGenerationUnavailable, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// buildMessages maps the structured prompt onto chat messages: the
// instruction as system, history as alternating turns, and the passages
// plus the isolated query as the final user message.
func buildMessages(prompt driven.PromptParts) []chatMsg {
	messages := []chatMsg{}
	if prompt.Instruction != "" {
		messages = append(messages, chatMsg{Role: "system", Content: prompt.Instruction})
	}
	for _, turn := range prompt.History {
		messages = append(messages,
			chatMsg{Role: "user", Content: turn.Query},
			chatMsg{Role: "assistant", Content: turn.Answer},
		)
	}

	var user strings.Builder
	if len(prompt.Passages) > 0 {
		user.WriteString("Passages:\n")
		for i, passage := range prompt.Passages {
			fmt.Fprintf(&user, "[%d] %s\n", i+1, passage)
		}
		user.WriteString("\n")
	}
	user.WriteString("Question: ")
	user.WriteString(prompt.Query)
	messages = append(messages, chatMsg{Role: "user", Content: user.String()})

	return messages
}

// MaxInputTokens returns the model's context budget.
func (s *GenerationService) MaxInputTokens() int {
	return s.maxInputTokens
}

// ModelName returns the name of the model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *GenerationService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *GenerationService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
