package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports a missing or expired entry. Redis returns it natively;
// the memory backend reuses it so callers handle both the same way.
var ErrMiss = redis.Nil

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisCache wraps go-redis.
type RedisCache struct{ client *redis.Client }

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key).Bytes()
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// MemoryCache is an in-memory TTL cache. Expiry is lazy: staleness is
// checked when an entry is touched, never by a background sweep. Key count
// is unbounded; the key space here is the handful of endpoint URLs the
// dashboard actually visits.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memItem

	now func() time.Time // test hook
}

type memItem struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]memItem{}, now: time.Now}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if m.now().Sub(item.storedAt) >= item.ttl {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return item.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Overwrite, never append: storedAt is monotonically non-decreasing
	// per key across successive stores.
	m.items[key] = memItem{value: value, storedAt: m.now(), ttl: ttl}
	return nil
}

func (m *MemoryCache) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// NewCache tries redis, falls back to memory.
func NewCache(ctx context.Context, client *redis.Client) Cache {
	if client != nil {
		if err := client.Ping(ctx).Err(); err == nil {
			return &RedisCache{client: client}
		}
	}
	return NewMemoryCache()
}
