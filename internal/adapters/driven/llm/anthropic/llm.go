// Package anthropic synthesises answers using the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL        = "https://api.anthropic.com"
	DefaultModel          = "claude-3-5-haiku-latest"
	DefaultTimeout        = 120 * time.Second
	DefaultMaxInputTokens = 200000

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	// maxAnswerTokens caps the generated answer length.
	maxAnswerTokens = 1024
)

// Config holds configuration for the Anthropic generation service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the chat model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxInputTokens overrides the model's declared input budget.
	MaxInputTokens int
}

// GenerationService synthesises answers using the Anthropic Messages API.
type GenerationService struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	maxInputTokens int
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model     string        `json:"model"`
	Messages  []messagesMsg `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
}

// messagesMsg is the Anthropic message format.
type messagesMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGenerationService creates a new Anthropic generation service.
func NewGenerationService(cfg Config) (*GenerationService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
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
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		maxInputTokens: cfg.MaxInputTokens,
	}, nil
}

// Generate produces answer text for the prompt.
func (s *GenerationService) Generate(ctx context.Context, prompt driven.PromptParts) (string, error) {
	reqBody := messagesRequest{
		Model:     s.model,
		Messages:  buildMessages(prompt),
		MaxTokens: maxAnswerTokens,
		System:    prompt.Instruction,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %v", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		if msgResp.Error.Type == "invalid_request_error" && strings.Contains(msgResp.Error.Message, "prompt is too long") {
			return "", fmt.Errorf("%w: anthropic: %s", domain.ErrContextTooLarge, msgResp.Error.Message)
		}
		return "", fmt.Errorf("%w: anthropic: %s", domain.ErrGenerationUnavailable, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic status %d: %s", domain.ErrGenerationUnavailable, resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("%w: anthropic: no response content returned", domain.ErrGenerationUnavailable)
	}

	// Concatenate all text content blocks.
	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// buildMessages maps the structured prompt onto chat messages: history
// as alternating turns, and the passages plus the isolated query as the
// final user message. The instruction travels in the system field.
func buildMessages(prompt driven.PromptParts) []messagesMsg {
	messages := []messagesMsg{}
	for _, turn := range prompt.History {
		messages = append(messages,
			messagesMsg{Role: "user", Content: turn.Query},
			messagesMsg{Role: "assistant", Content: turn.Answer},
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
	messages = append(messages, messagesMsg{Role: "user", Content: user.String()})

	return messages
}

// MaxInputTokens returns the model's declared input budget.
func (s *GenerationService) MaxInputTokens() int {
	return s.maxInputTokens
}

// ModelName returns the name of the model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /v1/models
// endpoint. This validates the API key without running inference.
func (s *GenerationService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("anthropic: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (s *GenerationService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
