// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - CollectionStore: Collection metadata persistence
//   - DocumentStore: Document, chunk, and question persistence
//   - SessionStore: Conversation session persistence
//   - JobStore: Job lifecycle persistence with compare-and-swap transitions
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.tessera/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Job transitions additionally guard the expected state
// in the UPDATE itself, so concurrent workers cannot both claim one job.
package sqlite
