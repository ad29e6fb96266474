package domain

import "time"

// Config holds all tunable pipeline policy. It is passed explicitly
// through constructors, never read from ambient global state, so
// multiple collections can run under different policies concurrently.
type Config struct {
	// Chunking controls how documents are split.
	Chunking ChunkingConfig

	// Embedding controls batching of embedding calls.
	Embedding EmbeddingConfig

	// Questions controls question generation during ingestion.
	Questions QuestionsConfig

	// Jobs controls retry, backoff and worker behaviour.
	Jobs JobsConfig

	// Session bounds conversation history.
	Session SessionConfig

	// Retrieval controls hybrid retrieval and reranking.
	Retrieval RetrievalConfig

	// Generation controls answer synthesis and evaluation.
	Generation GenerationConfig
}

// ChunkingConfig controls document splitting.
type ChunkingConfig struct {
	// MaxTokens is the chunk token ceiling.
	MaxTokens int

	// OverlapTokens is how many tokens consecutive chunks share.
	OverlapTokens int
}

// EmbeddingConfig controls batching of embedding calls.
type EmbeddingConfig struct {
	// BatchSize is how many chunks are embedded per call.
	BatchSize int
}

// QuestionsConfig controls question generation.
type QuestionsConfig struct {
	// SampleSize is how many chunks per document are sampled for
	// question generation. Sampling is spread across the document to
	// maximise coverage, never just the first N chunks.
	SampleSize int

	// PerChunk is how many questions are requested per sampled chunk.
	PerChunk int
}

// JobsConfig controls the job tracker.
type JobsConfig struct {
	// MaxAttempts is the bounded retry budget per job.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry. Subsequent
	// retries double it, with jitter.
	BaseBackoff time.Duration

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration

	// Workers is the ingestion worker pool size.
	Workers int

	// PollInterval is how often workers look for due jobs.
	PollInterval time.Duration

	// WatchdogGrace is how long a job may sit in running before the
	// watchdog returns it to queued.
	WatchdogGrace time.Duration
}

// SessionConfig bounds conversation history.
type SessionConfig struct {
	// MaxTurns is the turn-count bound on history.
	MaxTurns int

	// MaxTokens is the token-budget bound on history.
	// Whichever bound binds first wins.
	MaxTokens int
}

// RetrievalConfig controls hybrid retrieval.
type RetrievalConfig struct {
	// TopK is how many candidates each retrieval mode returns and how
	// many results a query ultimately yields.
	TopK int

	// FusionK is the reciprocal-rank-fusion constant.
	FusionK int

	// RerankLimit caps the candidate set size before reranking, so the
	// reranker's cost stays bounded.
	RerankLimit int
}

// GenerationConfig controls answer synthesis.
type GenerationConfig struct {
	// GroundednessThreshold triggers a single regeneration when the
	// evaluated answer scores below it.
	GroundednessThreshold float64

	// PromptOverheadTokens reserves prompt budget for instructions and
	// formatting when truncating passages.
	PromptOverheadTokens int
}

// DefaultConfig returns the default pipeline policy.
func DefaultConfig() Config {
	return Config{
		Chunking: ChunkingConfig{
			MaxTokens:     256,
			OverlapTokens: 32,
		},
		Embedding: EmbeddingConfig{
			BatchSize: 16,
		},
		Questions: QuestionsConfig{
			SampleSize: 8,
			PerChunk:   2,
		},
		Jobs: JobsConfig{
			MaxAttempts:   3,
			BaseBackoff:   2 * time.Second,
			MaxBackoff:    2 * time.Minute,
			Workers:       4,
			PollInterval:  time.Second,
			WatchdogGrace: 5 * time.Minute,
		},
		Session: SessionConfig{
			MaxTurns:  10,
			MaxTokens: 2000,
		},
		Retrieval: RetrievalConfig{
			TopK:        10,
			FusionK:     60,
			RerankLimit: 50,
		},
		Generation: GenerationConfig{
			GroundednessThreshold: 0.4,
			PromptOverheadTokens:  200,
		},
	}
}
