package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"meanrev-go/internal/config"
	"meanrev-go/internal/frame"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("marketdata: cache miss")

// Cache stores bar history by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]frame.Bar, error)
	Set(ctx context.Context, key string, bars []frame.Bar, ttl time.Duration) error
	Close() error
}

type memoryItem struct {
	bars     []frame.Bar
	expireAt time.Time
}

// MemoryCache keeps bars in process. A zero ttl never expires.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryItem
	now  func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]frame.Bar, error) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expireAt.IsZero() && c.now().After(item.expireAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}
	out := make([]frame.Bar, len(item.bars))
	copy(out, item.bars)
	return out, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, bars []frame.Bar, ttl time.Duration) error {
	item := memoryItem{bars: append([]frame.Bar(nil), bars...)}
	if ttl > 0 {
		item.expireAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.data[key] = item
	c.mu.Unlock()
	return nil
}

// Close is a no-op.
func (c *MemoryCache) Close() error { return nil }

// RedisCache stores bars as JSON under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and pings the configured Redis server.
func NewRedisCache(ctx context.Context, cfg config.Cache) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

func (c *RedisCache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]frame.Bar, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var bars []frame.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("decode cached bars: %w", err)
	}
	return bars, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, bars []frame.Bar, ttl time.Duration) error {
	data, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("encode bars: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }

// NewCache builds the configured cache backend.
func NewCache(ctx context.Context, cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(ctx, cfg)
	case "", "memory":
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
