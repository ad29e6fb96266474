// Package services implements the core application logic for Tessera.
//
// Services orchestrate domain entities and driven ports to implement
// the two pipelines:
//
//   - IngestionPipeline: document -> chunks -> embeddings -> questions,
//     tracked as jobs by the JobTracker
//   - QueryPipeline: session context -> hybrid retrieval -> rerank ->
//     confidence -> generation -> evaluation
//
// # Architectural Position
//
// Services sit between driving ports (CLI, watcher) and driven ports
// (stores, indexes, providers). They contain all business rules and no
// infrastructure code.
package services
