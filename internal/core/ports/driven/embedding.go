package driven

import (
	"context"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - Hashing (built-in, deterministic, offline)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (all-minilm, nomic-embed-text)
//   - ONNX Runtime (all-MiniLM-L6-v2 exported to ONNX)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one per input, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match the collection declaration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingCache memoises embeddings keyed by model and text.
type EmbeddingCache interface {
	// GetMany returns cached vectors by key. Missing keys are absent from the map.
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMany stores vectors by key.
	SetMany(ctx context.Context, entries map[string][]float32) error

	// Close releases resources.
	Close() error
}

// AIConfigValidator checks that an embedding configuration reaches its backend.
type AIConfigValidator interface {
	// ValidateEmbedding creates the configured service, pings it and checks
	// the width of a probe embedding.
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
}
