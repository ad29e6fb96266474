package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

// Provider names accepted in the embedding and generation sections.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings is everything read from the TOML config file: where data
// lives, which model backends to talk to, and pipeline policy
// overrides. Zero values mean "use the default".
type Settings struct {
	// DataDir is where the metadata database and indexes live.
	// Defaults to ~/.tessera/data.
	DataDir string `toml:"data_dir"`

	// Embedding selects and configures the embedding backend.
	Embedding ProviderSettings `toml:"embedding"`

	// Generation selects and configures the generation backend.
	Generation ProviderSettings `toml:"generation"`

	// Pipeline overrides individual pipeline policy knobs.
	Pipeline PipelineSettings `toml:"pipeline"`
}

// ProviderSettings configures one model backend.
type ProviderSettings struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// PipelineSettings mirrors the pipeline policy knobs. Only fields the
// user sets override the defaults.
type PipelineSettings struct {
	Chunking struct {
		MaxTokens     int `toml:"max_tokens"`
		OverlapTokens int `toml:"overlap_tokens"`
	} `toml:"chunking"`

	Embedding struct {
		BatchSize int `toml:"batch_size"`
	} `toml:"embedding"`

	Questions struct {
		SampleSize int `toml:"sample_size"`
		PerChunk   int `toml:"per_chunk"`
	} `toml:"questions"`

	Jobs struct {
		MaxAttempts   int      `toml:"max_attempts"`
		BaseBackoff   duration `toml:"base_backoff"`
		MaxBackoff    duration `toml:"max_backoff"`
		Workers       int      `toml:"workers"`
		PollInterval  duration `toml:"poll_interval"`
		WatchdogGrace duration `toml:"watchdog_grace"`
	} `toml:"jobs"`

	Session struct {
		MaxTurns  int `toml:"max_turns"`
		MaxTokens int `toml:"max_tokens"`
	} `toml:"session"`

	Retrieval struct {
		TopK        int `toml:"top_k"`
		FusionK     int `toml:"fusion_k"`
		RerankLimit int `toml:"rerank_limit"`
	} `toml:"retrieval"`

	Generation struct {
		GroundednessThreshold float64 `toml:"groundedness_threshold"`
		PromptOverheadTokens  int     `toml:"prompt_overhead_tokens"`
	} `toml:"generation"`
}

// duration parses TOML duration strings like "2s" or "5m".
type duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultPath returns the default config file location,
// ~/.tessera/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".tessera", "config.toml"), nil
}

// Load reads settings from path. A missing file is not an error: the
// zero Settings (all defaults) are returned so the CLI works out of
// the box.
func Load(path string) (*Settings, error) {
	var s Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &s, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &s, nil
}

// Save writes settings to path, creating the parent directory if
// needed. File permissions are restricted because the config may hold
// API keys.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// PipelineConfig builds the pipeline policy from the defaults with the
// user's overrides applied on top.
func (s *Settings) PipelineConfig() domain.Config {
	cfg := domain.DefaultConfig()
	p := s.Pipeline

	if p.Chunking.MaxTokens > 0 {
		cfg.Chunking.MaxTokens = p.Chunking.MaxTokens
	}
	if p.Chunking.OverlapTokens > 0 {
		cfg.Chunking.OverlapTokens = p.Chunking.OverlapTokens
	}
	if p.Embedding.BatchSize > 0 {
		cfg.Embedding.BatchSize = p.Embedding.BatchSize
	}
	if p.Questions.SampleSize > 0 {
		cfg.Questions.SampleSize = p.Questions.SampleSize
	}
	if p.Questions.PerChunk > 0 {
		cfg.Questions.PerChunk = p.Questions.PerChunk
	}
	if p.Jobs.MaxAttempts > 0 {
		cfg.Jobs.MaxAttempts = p.Jobs.MaxAttempts
	}
	if p.Jobs.BaseBackoff > 0 {
		cfg.Jobs.BaseBackoff = time.Duration(p.Jobs.BaseBackoff)
	}
	if p.Jobs.MaxBackoff > 0 {
		cfg.Jobs.MaxBackoff = time.Duration(p.Jobs.MaxBackoff)
	}
	if p.Jobs.Workers > 0 {
		cfg.Jobs.Workers = p.Jobs.Workers
	}
	if p.Jobs.PollInterval > 0 {
		cfg.Jobs.PollInterval = time.Duration(p.Jobs.PollInterval)
	}
	if p.Jobs.WatchdogGrace > 0 {
		cfg.Jobs.WatchdogGrace = time.Duration(p.Jobs.WatchdogGrace)
	}
	if p.Session.MaxTurns > 0 {
		cfg.Session.MaxTurns = p.Session.MaxTurns
	}
	if p.Session.MaxTokens > 0 {
		cfg.Session.MaxTokens = p.Session.MaxTokens
	}
	if p.Retrieval.TopK > 0 {
		cfg.Retrieval.TopK = p.Retrieval.TopK
	}
	if p.Retrieval.FusionK > 0 {
		cfg.Retrieval.FusionK = p.Retrieval.FusionK
	}
	if p.Retrieval.RerankLimit > 0 {
		cfg.Retrieval.RerankLimit = p.Retrieval.RerankLimit
	}
	if p.Generation.GroundednessThreshold > 0 {
		cfg.Generation.GroundednessThreshold = p.Generation.GroundednessThreshold
	}
	if p.Generation.PromptOverheadTokens > 0 {
		cfg.Generation.PromptOverheadTokens = p.Generation.PromptOverheadTokens
	}

	return cfg
}

// ResolveDataDir returns the configured data directory, defaulting to
// ~/.tessera/data.
func (s *Settings) ResolveDataDir() (string, error) {
	if s.DataDir != "" {
		return s.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".tessera", "data"), nil
}
