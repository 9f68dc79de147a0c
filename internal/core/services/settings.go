package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDims          = "embedding.dimensions"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyONNXModelPath      = "embedding.onnx.model_path"
	keyONNXTokenizerPath  = "embedding.onnx.tokenizer_path"
	keyONNXLibraryPath    = "embedding.onnx.library_path"
	keyONNXMaxSeqLen      = "embedding.onnx.max_seq_len"
	keyCacheType          = "embedding.cache"
	keyCacheDir           = "embedding.cache_dir"
	keyRedisAddr          = "embedding.redis.addr"
	keyRedisPassword      = "embedding.redis.password"
	keyRedisDB            = "embedding.redis.db"
	keyRedisTTL           = "embedding.redis.ttl_seconds"
	keyStoreDataDir       = "store.data_dir"
	keyStoreCollection    = "store.collection"
	keyIndexType          = "index.type"
	keyIndexM             = "index.m"
	keyIndexEfConstruct   = "index.ef_construction"
	keyIndexEfSearch      = "index.ef_search"
	keyIndexSeed          = "index.seed"
	keyQueryK             = "query.k"
	keyAggMinMentions     = "aggregation.min_mentions"
	keyAMQPURL            = "amqp.url"
	keyAMQPQueue          = "amqp.queue"
	keyHTTPAddr           = "http.addr"
	defaultOllamaEndpoint = "http://localhost:11434"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
	kindCache
	kindIndex
)

var settingKeys = map[string]keyKind{
	keyEmbedProvider:     kindProvider,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedDims:         kindInt,
	keyEmbedBatchSize:    kindInt,
	keyEmbedRPS:          kindFloat,
	keyONNXModelPath:     kindString,
	keyONNXTokenizerPath: kindString,
	keyONNXLibraryPath:   kindString,
	keyONNXMaxSeqLen:     kindInt,
	keyCacheType:         kindCache,
	keyCacheDir:          kindString,
	keyRedisAddr:         kindString,
	keyRedisPassword:     kindString,
	keyRedisDB:           kindInt,
	keyRedisTTL:          kindInt,
	keyStoreDataDir:      kindString,
	keyStoreCollection:   kindString,
	keyIndexType:         kindIndex,
	keyIndexM:            kindInt,
	keyIndexEfConstruct:  kindInt,
	keyIndexEfSearch:     kindInt,
	keyIndexSeed:         kindInt,
	keyQueryK:            kindInt,
	keyAggMinMentions:    kindInt,
	keyAMQPURL:           kindString,
	keyAMQPQueue:         kindString,
	keyHTTPAddr:          kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case connectivity checks are skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	provider := s.getProvider(d.Embedding.Provider)
	model := s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[provider])
	dims := d.Embedding.Dimensions
	if known, ok := domain.EmbeddingDimensions()[model]; ok && provider != domain.AIProviderHashing {
		dims = known
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             model,
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDims, dims),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
			ONNX: domain.ONNXSettings{
				ModelPath:     s.configStore.GetString(keyONNXModelPath),
				TokenizerPath: s.configStore.GetString(keyONNXTokenizerPath),
				LibraryPath:   s.configStore.GetString(keyONNXLibraryPath),
				MaxSeqLen:     s.getInt(keyONNXMaxSeqLen, d.Embedding.ONNX.MaxSeqLen),
			},
			Cache: domain.CacheSettings{
				Type:          s.getCacheType(d.Embedding.Cache.Type),
				Dir:           s.configStore.GetString(keyCacheDir),
				RedisAddr:     s.getString(keyRedisAddr, d.Embedding.Cache.RedisAddr),
				RedisPassword: s.configStore.GetString(keyRedisPassword),
				RedisDB:       s.getInt(keyRedisDB, d.Embedding.Cache.RedisDB),
				TTLSeconds:    s.getInt(keyRedisTTL, d.Embedding.Cache.TTLSeconds),
			},
		},
		VectorIndex: domain.VectorIndexSettings{
			Type:           s.getIndexType(d.VectorIndex.Type),
			M:              s.getInt(keyIndexM, d.VectorIndex.M),
			EfConstruction: s.getInt(keyIndexEfConstruct, d.VectorIndex.EfConstruction),
			EfSearch:       s.getInt(keyIndexEfSearch, d.VectorIndex.EfSearch),
			Seed:           int64(s.getInt(keyIndexSeed, int(d.VectorIndex.Seed))),
		},
		Store: domain.StoreSettings{
			DataDir:    s.getString(keyStoreDataDir, d.Store.DataDir),
			Collection: s.getString(keyStoreCollection, d.Store.Collection),
		},
		Query: domain.QuerySettings{
			K: s.getInt(keyQueryK, d.Query.K),
		},
		Aggregation: domain.AggregationSettings{
			MinMentions: s.getInt(keyAggMinMentions, d.Aggregation.MinMentions),
		},
		AMQP: domain.AMQPSettings{
			URL:   s.getString(keyAMQPURL, d.AMQP.URL),
			Queue: s.getString(keyAMQPQueue, d.AMQP.Queue),
		},
		HTTP: domain.HTTPSettings{
			Addr: s.getString(keyHTTPAddr, d.HTTP.Addr),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyONNXModelPath, settings.Embedding.ONNX.ModelPath},
		{keyONNXTokenizerPath, settings.Embedding.ONNX.TokenizerPath},
		{keyONNXLibraryPath, settings.Embedding.ONNX.LibraryPath},
		{keyONNXMaxSeqLen, settings.Embedding.ONNX.MaxSeqLen},
		{keyCacheType, string(settings.Embedding.Cache.Type)},
		{keyCacheDir, settings.Embedding.Cache.Dir},
		{keyRedisAddr, settings.Embedding.Cache.RedisAddr},
		{keyRedisDB, settings.Embedding.Cache.RedisDB},
		{keyRedisTTL, settings.Embedding.Cache.TTLSeconds},
		{keyStoreDataDir, settings.Store.DataDir},
		{keyStoreCollection, settings.Store.Collection},
		{keyIndexType, string(settings.VectorIndex.Type)},
		{keyIndexM, settings.VectorIndex.M},
		{keyIndexEfConstruct, settings.VectorIndex.EfConstruction},
		{keyIndexEfSearch, settings.VectorIndex.EfSearch},
		{keyIndexSeed, int(settings.VectorIndex.Seed)},
		{keyQueryK, settings.Query.K},
		{keyAggMinMentions, settings.Aggregation.MinMentions},
		{keyAMQPURL, settings.AMQP.URL},
		{keyAMQPQueue, settings.AMQP.Queue},
		{keyHTTPAddr, settings.HTTP.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when set so that an empty value never clobbers
	// a key configured by hand.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.Embedding.Cache.RedisPassword != "" {
		if err := s.configStore.Set(keyRedisPassword, settings.Embedding.Cache.RedisPassword); err != nil {
			return fmt.Errorf("save redis password: %w", err)
		}
	}

	return nil
}

// Set stores a single configuration key after validating it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, value)
		}
		parsed = value
	case kindCache:
		if !domain.CacheType(value).IsValid() {
			return fmt.Errorf("%w: invalid cache type: %s", domain.ErrInvalidInput, value)
		}
		parsed = value
	case kindIndex:
		if !domain.IndexType(value).IsValid() {
			return fmt.Errorf("%w: invalid index type: %s", domain.ErrInvalidInput, value)
		}
		parsed = value
	default:
		parsed = value
	}

	return s.configStore.Set(key, parsed)
}

// Keys returns the recognised configuration keys, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UnknownKeys lists stored keys that no setting reads, typically typos made
// while editing config.toml by hand.
func (s *SettingsService) UnknownKeys() []string {
	var unknown []string
	for _, k := range s.configStore.Keys() {
		if _, ok := settingKeys[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	switch provider {
	case domain.AIProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaEndpoint
		}
	case domain.AIProviderOpenAI:
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	e := settings.Embedding
	if !e.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not fully configured", e.Provider.Description())
	}
	if e.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", domain.ErrInvalidInput)
	}
	if e.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", domain.ErrInvalidInput)
	}
	if e.Cache.Type == domain.CacheRedis && e.Cache.RedisAddr == "" {
		return fmt.Errorf("%w: embedding.redis.addr is required for the redis cache", domain.ErrInvalidInput)
	}
	if settings.VectorIndex.Type == domain.IndexHNSW && settings.VectorIndex.M < 2 {
		return fmt.Errorf("%w: index.m must be at least 2", domain.ErrInvalidInput)
	}
	if settings.Query.K <= 0 {
		return fmt.Errorf("%w: query.k must be positive", domain.ErrInvalidInput)
	}
	if settings.Store.Collection == "" {
		return fmt.Errorf("%w: store.collection is required", domain.ErrInvalidInput)
	}

	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt distinguishes an absent key from an explicit zero, since zero is
// meaningful for aggregation.min_mentions and embedding.redis.db.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCacheType(defaultVal domain.CacheType) domain.CacheType {
	c := domain.CacheType(s.configStore.GetString(keyCacheType))
	if !c.IsValid() {
		return defaultVal
	}
	return c
}

func (s *SettingsService) getIndexType(defaultVal domain.IndexType) domain.IndexType {
	t := domain.IndexType(s.configStore.GetString(keyIndexType))
	if !t.IsValid() {
		return defaultVal
	}
	return t
}
