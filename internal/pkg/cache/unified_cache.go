package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CacheMetrics tracks cache performance
type CacheMetrics struct {
	Hits   int64
	Misses int64
	Sets   int64
}

// UnifiedCache is a typed facade over go-cache.
type UnifiedCache[T any] struct {
	store  *gocache.Cache
	name   string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewUnifiedCache creates a cache whose entries expire after ttl and are purged every ttl*2.
func NewUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnifiedCache[T]{
		store:  gocache.New(ttl, 2*ttl),
		name:   name,
		logger: logger,
	}
}

// Set stores an item with the default TTL
func (c *UnifiedCache[T]) Set(key string, value T) {
	c.store.SetDefault(key, value)
	c.sets.Add(1)
	c.logger.Debug("Cache set", zap.String("cache", c.name), zap.String("key", key))
}

// Get retrieves an item from the cache
func (c *UnifiedCache[T]) Get(key string) (T, bool) {
	var zero T
	raw, found := c.store.Get(key)
	if !found {
		c.misses.Add(1)
		c.logger.Debug("Cache miss", zap.String("cache", c.name), zap.String("key", key))
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		c.misses.Add(1)
		c.store.Delete(key)
		c.logger.Warn("Cache entry had unexpected type, evicted", zap.String("cache", c.name), zap.String("key", key))
		return zero, false
	}
	c.hits.Add(1)
	c.logger.Debug("Cache hit", zap.String("cache", c.name), zap.String("key", key))
	return value, true
}

// Delete removes an item from the cache
func (c *UnifiedCache[T]) Delete(key string) {
	c.store.Delete(key)
}

// Clear removes all items from the cache
func (c *UnifiedCache[T]) Clear() {
	c.store.Flush()
	c.logger.Info("Cache cleared", zap.String("cache", c.name))
}

// GetMetrics returns current cache metrics
func (c *UnifiedCache[T]) GetMetrics() CacheMetrics {
	return CacheMetrics{Hits: c.hits.Load(), Misses: c.misses.Load(), Sets: c.sets.Load()}
}

// Size returns the number of items in the cache, expired ones included until purged.
func (c *UnifiedCache[T]) Size() int {
	return c.store.ItemCount()
}

// KeyBuilder builds deterministic cache keys from ordered components.
type KeyBuilder struct {
	components []map[string]any
}

func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{components: make([]map[string]any, 0, 8)}
}

// Add appends a component to the key
func (b *KeyBuilder) Add(key string, value any) *KeyBuilder {
	b.components = append(b.components, map[string]any{key: value})
	return b
}

// Build generates the final cache key as an MD5 hash
func (b *KeyBuilder) Build() (string, error) {
	jsonBytes, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}
	hash := md5.Sum(jsonBytes)
	return hex.EncodeToString(hash[:]), nil
}

// BuildOrEmpty builds the key, returning "" when a component cannot be encoded.
func (b *KeyBuilder) BuildOrEmpty() string {
	key, err := b.Build()
	if err != nil {
		return ""
	}
	return key
}
