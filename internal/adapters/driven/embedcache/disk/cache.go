// Package disk provides an embedding cache kept in a SQLite file.
package disk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedcache"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// File is the cache database name inside the cache directory.
const File = "embeddings.db"

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key    TEXT PRIMARY KEY,
	vector BLOB NOT NULL
) WITHOUT ROWID`

// Cache stores one row per key in the cache table.
type Cache struct {
	dir string
	db  *sql.DB
}

// New opens the cache database under dir, creating both if needed.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("disk cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dsn := filepath.Join(dir, File) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &Cache{dir: dir, db: db}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// GetMany returns the cached vectors. Corrupt rows are reported as misses.
func (c *Cache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	stmt, err := c.db.PrepareContext(ctx, "SELECT vector FROM cache WHERE key = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare cache lookup: %w", err)
	}
	defer stmt.Close()

	for _, key := range keys {
		var data []byte
		err := stmt.QueryRowContext(ctx, key).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		vec, err := embedcache.DecodeVector(data)
		if err != nil {
			logger.Debug("disk cache: dropping %s: %v", key, err)
			continue
		}
		found[key] = vec
	}
	return found, nil
}

// SetMany writes all entries in one transaction.
func (c *Cache) SetMany(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO cache (key, vector) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for key, vec := range entries {
		if _, err := stmt.ExecContext(ctx, key, embedcache.EncodeVector(vec)); err != nil {
			return fmt.Errorf("write cache entry: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}
