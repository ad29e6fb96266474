package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/tessera/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	settings, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Empty(t, settings.DataDir)
	assert.Equal(t, domain.DefaultConfig(), settings.PipelineConfig())
}

func TestLoadParsesProviderSections(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/var/lib/tessera"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
api_key = "sk-test"

[generation]
provider = "ollama"
model = "llama3.2"
base_url = "http://localhost:11434"
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tessera", settings.DataDir)
	assert.Equal(t, ProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, ProviderOllama, settings.Generation.Provider)
	assert.Equal(t, "http://localhost:11434", settings.Generation.BaseURL)
}

func TestPipelineConfigAppliesOverrides(t *testing.T) {
	path := writeConfig(t, `
[pipeline.chunking]
max_tokens = 128

[pipeline.jobs]
max_attempts = 5
base_backoff = "500ms"
watchdog_grace = "10m"

[pipeline.retrieval]
top_k = 20

[pipeline.generation]
groundedness_threshold = 0.6
`)

	settings, err := Load(path)
	require.NoError(t, err)
	cfg := settings.PipelineConfig()

	assert.Equal(t, 128, cfg.Chunking.MaxTokens)
	assert.Equal(t, 5, cfg.Jobs.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Jobs.BaseBackoff)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.WatchdogGrace)
	assert.Equal(t, 20, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.6, cfg.Generation.GroundednessThreshold, 1e-9)

	// Untouched knobs keep their defaults.
	defaults := domain.DefaultConfig()
	assert.Equal(t, defaults.Chunking.OverlapTokens, cfg.Chunking.OverlapTokens)
	assert.Equal(t, defaults.Jobs.MaxBackoff, cfg.Jobs.MaxBackoff)
	assert.Equal(t, defaults.Session.MaxTurns, cfg.Session.MaxTurns)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[pipeline.jobs]
base_backoff = "soon"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	settings := &Settings{DataDir: "/tmp/tessera"}
	settings.Embedding.Provider = ProviderOllama
	settings.Embedding.Model = "nomic-embed-text"
	settings.Pipeline.Jobs.Workers = 2

	require.NoError(t, settings.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tessera", loaded.DataDir)
	assert.Equal(t, "nomic-embed-text", loaded.Embedding.Model)
	assert.Equal(t, 2, loaded.PipelineConfig().Jobs.Workers)
}

func TestResolveDataDirPrefersConfigured(t *testing.T) {
	settings := &Settings{DataDir: "/data/tessera"}
	dir, err := settings.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/data/tessera", dir)
}
