package external

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onco-evidence-engine/internal/domain"
)

// EmbeddingCache caches computed embeddings in Redis, keyed by a digest of
// the input text. Embeddings are pure functions of their text, so entries
// only expire to bound memory, never for correctness.
type EmbeddingCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewEmbeddingCache creates a new embedding cache client.
func NewEmbeddingCache(config domain.CacheConfig) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.PoolSize
	opts.PoolTimeout = config.PoolTimeout
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &EmbeddingCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// cachedEmbedding wraps a vector with cache bookkeeping.
type cachedEmbedding struct {
	Vector    []float32 `json:"vector"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a cached embedding. A cache miss returns found=false with
// no error; corrupted or expired entries are dropped and treated as misses.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float32, bool, error) {
	key := c.key(text)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var cached cachedEmbedding
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Vector, true, nil
}

// Set caches an embedding with the default TTL.
func (c *EmbeddingCache) Set(ctx context.Context, text string, vector []float32) error {
	cached := cachedEmbedding{
		Vector:    vector,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.defaultTTL),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding cache entry: %w", err)
	}

	return c.redis.Set(ctx, c.key(text), data, c.defaultTTL).Err()
}

// Health verifies Redis connectivity.
func (c *EmbeddingCache) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *EmbeddingCache) Close() error {
	return c.redis.Close()
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
