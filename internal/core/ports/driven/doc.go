// Package driven declares the interfaces the core services call out through.
// Adapters under internal/adapters/driven implement them.
//
// A working store needs an EmbeddingService, an EntryStore and a
// VectorIndex. ConfigStore backs settings. EmbeddingCache is optional: with
// a nil cache every text goes to the embedder.
//
// This package imports domain and nothing else from internal/.
package driven
