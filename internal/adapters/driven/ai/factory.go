// Package ai provides factory functions for creating embedding, cache and
// vector index adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	diskcache "github.com/custodia-labs/fintweet/internal/adapters/driven/embedcache/disk"
	rediscache "github.com/custodia-labs/fintweet/internal/adapters/driven/embedcache/redis"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/ollama"
	onnxembed "github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/onnx"
	openaiembed "github.com/custodia-labs/fintweet/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/vectorindex/hnsw"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error wrapping domain.ErrEmbeddingUnavailable.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'fintweet settings show' to check the configuration",
			domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// Opener returns a function that opens and validates the configured service.
// It is handed to services.NewEmbedder, which calls it on first use and again
// after a failed open.
func Opener(settings domain.EmbeddingSettings) func(ctx context.Context) (driven.EmbeddingService, error) {
	return func(ctx context.Context) (driven.EmbeddingService, error) {
		return CreateAndValidateEmbeddingService(ctx, &settings)
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		provider := "none"
		if settings != nil {
			provider = settings.Provider.String()
		}
		return nil, fmt.Errorf("embedding provider %q is not configured", provider)
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderONNX:
		return createONNXEmbedding(settings)

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Dimensions:        dimensions,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// createONNXEmbedding creates an in-process ONNX embedding service.
func createONNXEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := onnxembed.NewEmbeddingService(onnxembed.Config{
		ModelPath:     settings.ONNX.ModelPath,
		TokenizerPath: settings.ONNX.TokenizerPath,
		LibraryPath:   settings.ONNX.LibraryPath,
		ModelName:     settings.Model,
		Dimensions:    settings.Dimensions,
		MaxSeqLen:     settings.ONNX.MaxSeqLen,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateEmbeddingCache creates the configured cache. Returns nil for CacheNone.
func CreateEmbeddingCache(ctx context.Context, settings *domain.CacheSettings) (driven.EmbeddingCache, error) {
	switch settings.Type {
	case "", domain.CacheNone:
		return nil, nil

	case domain.CacheDisk:
		c, err := diskcache.New(settings.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil

	case domain.CacheRedis:
		c, err := rediscache.New(ctx, rediscache.Config{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
			TTL:      time.Duration(settings.TTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: embedding cache %s", domain.ErrUnsupportedType, settings.Type)
	}
}

// CreateVectorIndex creates an empty index of the configured type.
func CreateVectorIndex(settings *domain.VectorIndexSettings, dimensions int) (driven.VectorIndex, error) {
	switch settings.Type {
	case "", domain.IndexHNSW:
		idx, err := hnsw.New(hnsw.Config{
			Dimensions:     dimensions,
			M:              settings.M,
			EfConstruction: settings.EfConstruction,
			EfSearch:       settings.EfSearch,
			Seed:           settings.Seed,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil

	case domain.IndexFlat:
		idx, err := flat.New(dimensions)
		if err != nil {
			return nil, err
		}
		return idx, nil

	default:
		return nil, fmt.Errorf("%w: vector index %s", domain.ErrUnsupportedType, settings.Type)
	}
}
