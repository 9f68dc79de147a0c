package driving

import "github.com/custodia-labs/fintweet/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set stores a single configuration key after validating it.
	Set(key, value string) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks if current settings are usable.
	Validate() error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Keys returns the recognised configuration keys.
	Keys() []string

	// UnknownKeys returns stored keys that are not recognised.
	UnknownKeys() []string
}
