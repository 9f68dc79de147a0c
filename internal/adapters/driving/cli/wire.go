package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/ai"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/config/file"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fintweet/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/core/services"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// envOpenAIKey fills embedding.api_key when the config leaves it empty.
//
//nolint:gosec // G101: environment variable name, not a credential.
const envOpenAIKey = "OPENAI_API_KEY"

// sqliteStore is set when the durable store is in use.
var sqliteStore *sqlite.Store

func resolveConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return file.DefaultConfigDir()
}

func wireSettings() error {
	dir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolving config directory: %w", err)
	}
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	return nil
}

// applyEnv fills settings from the environment.
func applyEnv(s *domain.AppSettings) {
	if s.Embedding.APIKey == "" {
		s.Embedding.APIKey = os.Getenv(envOpenAIKey)
	}
}

// wireStore builds the document store, aggregation and ingestion services.
func wireStore(ctx context.Context) error {
	settings, err := currentSettings()
	if err != nil {
		return err
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}

	cacheSettings := settings.Embedding.Cache
	if cacheSettings.Type == domain.CacheDisk && cacheSettings.Dir == "" {
		cacheSettings.Dir = filepath.Join(dir, "cache", "embeddings")
	}
	cache, err := ai.CreateEmbeddingCache(ctx, &cacheSettings)
	if err != nil {
		// A cache is an optimisation; run without it.
		logger.Warn("embedding cache disabled: %v", err)
		cache = nil
	}

	dims := settings.Embedding.Dimensions
	opts := []services.EmbedderOption{services.WithBatchSize(settings.Embedding.BatchSize)}
	if cache != nil {
		opts = append(opts, services.WithEmbeddingCache(cache))
	}
	embedder := services.NewEmbedder(services.EmbeddingOpener(ai.Opener(settings.Embedding)), dims, opts...)
	closers = append(closers, embedder.Close)

	entries, err := openEntryStore(settings, dir)
	if err != nil {
		return err
	}

	index, err := ai.CreateVectorIndex(&settings.VectorIndex, dims)
	if err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}

	collection := domain.Collection{
		Name:       settings.Store.Collection,
		Metric:     domain.MetricCosine,
		Dimensions: dims,
	}
	store, err := services.OpenDocumentStore(ctx, collection, entries, index, embedder)
	if err != nil {
		_ = index.Close()
		return err
	}
	closers = append(closers, store.Close)

	records := services.NewRecordSet()
	documentStore = store
	aggregationService = services.NewAggregationService(records)
	ingestService = services.NewIngestService(store, records)

	logger.Debug("Document store ready: collection=%s dims=%d index=%s provider=%s",
		collection.Name, dims, settings.VectorIndex.Type, settings.Embedding.Provider)
	return nil
}

func openEntryStore(settings *domain.AppSettings, dir string) (driven.EntryStore, error) {
	if ephemeral {
		logger.Debug("Using in-memory document store")
		return memory.NewEntryStore(), nil
	}

	dataDir := settings.Store.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(dir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	sqliteStore = store
	closers = append(closers, func() error {
		sqliteStore = nil
		return store.Close()
	})
	return store.EntryStore(settings.Store.Collection), nil
}
