// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// The core services depend on these interfaces, never on concrete
// backends. Backends are selected at construction time:
//
//   - EmbeddingService: OpenAI, Ollama
//   - GenerationService: OpenAI, Ollama
//   - VectorIndex: in-memory cosine index
//   - LexicalIndex: Bleve BM25 index
//   - Stores: in-memory, SQLite
package driven
