// Package sqlite provides the durable implementation of driven.EntryStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database holds any number of
// collections; EntryStore binds to one of them by name.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 blobs.
//
// # Data Location
//
// By default, the database is stored at ~/.fintweet/data/fintweet.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, so readers see a consistent snapshot while a batch is
// being inserted.
package sqlite
