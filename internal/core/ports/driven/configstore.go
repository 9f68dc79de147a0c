package driven

// ConfigStore is the key/value backing for fintweet settings.
// Keys use dot notation ("embedding.provider", "query.k") and map onto
// nested TOML tables in the file-backed implementation. Typed getters
// return the zero value when a key is absent or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt also accepts int64 and whole float64 values, which is how
	// TOML decodes integers.
	GetInt(key string) int

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Keys lists every stored key in sorted order, including keys the
	// settings layer does not recognise.
	Keys() []string

	Save() error
	Load() error

	// Path is the backing file, or ":memory:" for the in-memory store.
	Path() string
}
