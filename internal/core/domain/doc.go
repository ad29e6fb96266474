// Package domain defines the core business entities for Tessera.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Collection: A group of documents sharing one embedding space
//   - Document: An ingested document and its pipeline status
//   - Chunk: The unit of retrieval, derived from a document
//   - Question: A generated question tied to a collection
//   - Job: One unit of asynchronous ingestion work
//   - ConversationSession: Bounded per-session dialogue history
//   - SearchOutput: The answer to one query, with evidence
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
