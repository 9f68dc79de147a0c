// Package redis provides an embedding cache backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/embedcache"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// KeyPrefix namespaces cache entries.
const KeyPrefix = "fintweet:emb:"

const (
	pingTimeout = 3 * time.Second
	defaultTTL  = 7 * 24 * time.Hour
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache stores vectors as binary strings with a TTL.
type Cache struct {
	client *redisv9.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}

	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redisv9.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// GetMany fetches all keys with a single MGET.
func (c *Cache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	found := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = KeyPrefix + k
	}
	values, err := c.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := embedcache.DecodeVector([]byte(s))
		if err != nil {
			logger.Debug("redis cache: dropping %s: %v", keys[i], err)
			continue
		}
		found[keys[i]] = vec
	}
	return found, nil
}

// SetMany writes all entries in one pipeline.
func (c *Cache) SetMany(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		for key, vec := range entries {
			pipe.Set(ctx, KeyPrefix+key, embedcache.EncodeVector(vec), c.ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
