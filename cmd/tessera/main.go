package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tessera-labs/tessera/internal/adapters/driven/config/file"
	ollamaembed "github.com/tessera-labs/tessera/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/tessera-labs/tessera/internal/adapters/driven/embedding/openai"
	"github.com/tessera-labs/tessera/internal/adapters/driven/lexical/bleve"
	anthropicllm "github.com/tessera-labs/tessera/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/tessera-labs/tessera/internal/adapters/driven/llm/ollama"
	openaillm "github.com/tessera-labs/tessera/internal/adapters/driven/llm/openai"
	"github.com/tessera-labs/tessera/internal/adapters/driven/storage/sqlite"
	vecmem "github.com/tessera-labs/tessera/internal/adapters/driven/vector/memory"
	"github.com/tessera-labs/tessera/internal/adapters/driving/cli"
	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
	"github.com/tessera-labs/tessera/internal/core/services"
	"github.com/tessera-labs/tessera/internal/logger"
)

// app holds everything that needs shutting down after the command
// finishes.
type app struct {
	store     *sqlite.Store
	vectors   *vecmem.Index
	lexical   *bleve.Index
	embedder  driven.EmbeddingService
	generator driven.GenerationService
	tracker   *services.JobTracker
}

func main() {
	a := &app{}
	cli.SetBootstrap(func() error {
		return a.bootstrap()
	})

	err := cli.Execute()
	a.shutdown()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the full engine behind the CLI. It runs after flag
// parsing, so --config and --data-dir are already resolved.
func (a *app) bootstrap() error {
	configPath := cli.ConfigPath()
	if configPath == "" {
		var err error
		configPath, err = file.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	settings, err := file.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dataDir := cli.DataDir()
	if dataDir == "" {
		dataDir, err = settings.ResolveDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
	}

	cfg := settings.PipelineConfig()

	a.store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	a.vectors = vecmem.NewIndex()
	a.lexical, err = bleve.NewIndex()
	if err != nil {
		return fmt.Errorf("open lexical index: %w", err)
	}

	a.embedder, err = buildEmbedder(settings.Embedding)
	if err != nil {
		return fmt.Errorf("configure embedding provider: %w", err)
	}

	a.generator, err = buildGenerator(settings.Generation)
	if err != nil {
		// Generation is optional: retrieval still works without it,
		// queries just degrade to passages-only output.
		logger.Warn("Generation provider unavailable: %v", err)
		a.generator = nil
	}

	collections := a.store.CollectionStore()
	docs := a.store.DocumentStore()
	sessions := a.store.SessionStore()
	jobs := a.store.JobStore()

	questions := services.NewQuestionService(docs, a.generator, cfg.Questions)
	pipeline := services.NewIngestionPipeline(collections, docs, a.embedder, a.vectors, a.lexical, questions, cfg)

	a.tracker = services.NewJobTracker(jobs, cfg.Jobs)
	a.tracker.RegisterHandler(domain.JobKindIngestDocument, pipeline.HandleJob)
	a.tracker.RegisterHandler(domain.JobKindReembedCollection, pipeline.HandleReembedJob)
	a.tracker.Start(context.Background())

	retriever := services.NewRetriever(docs, a.vectors, a.lexical, a.embedder, cfg.Retrieval)
	query := services.NewQueryPipeline(
		collections, sessions,
		services.NewContextManager(cfg.Session), retriever,
		services.NewReranker(cfg.Retrieval.RerankLimit),
		services.NewConfidenceScorer(), services.NewEvaluator(),
		a.generator, cfg,
	)

	engine := services.NewEngine(collections, docs, a.tracker, pipeline, query, questions)
	cli.SetServices(engine, engine, engine)
	return nil
}

func buildEmbedder(p file.ProviderSettings) (driven.EmbeddingService, error) {
	switch p.Provider {
	case file.ProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case file.ProviderOllama, "":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", p.Provider)
	}
}

func buildGenerator(p file.ProviderSettings) (driven.GenerationService, error) {
	switch p.Provider {
	case file.ProviderAnthropic:
		return anthropicllm.NewGenerationService(anthropicllm.Config{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case file.ProviderOpenAI:
		return openaillm.NewGenerationService(openaillm.Config{
			APIKey:  p.APIKey,
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case file.ProviderOllama, "":
		return ollamallm.NewGenerationService(ollamallm.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", p.Provider)
	}
}

// shutdown stops the workers, then closes adapters. Nil fields mean
// bootstrap never ran (version, help) or failed part-way.
func (a *app) shutdown() {
	if a.tracker != nil {
		a.tracker.Stop()
	}
	if a.generator != nil {
		_ = a.generator.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.lexical != nil {
		_ = a.lexical.Close()
	}
	if a.vectors != nil {
		_ = a.vectors.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
