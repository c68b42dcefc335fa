package mappersmith

import (
	"context"
	"hash/fnv"
	"net/http"
	"sync"
	"time"
)

// CacheEntry is a stored gateway outcome.
type CacheEntry struct {
	Status    int
	Headers   Headers
	Body      []byte
	ExpiresAt time.Time
}

// Cache stores gateway responses by key. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
}

const cacheShardCount = 16

// InMemoryCache is a sharded TTL map. Expired entries are dropped lazily on
// lookup.
type InMemoryCache struct {
	shards [cacheShardCount]*cacheShard
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
}

// NewInMemoryCache returns an empty cache.
func NewInMemoryCache() *InMemoryCache {
	cache := &InMemoryCache{}
	for i := range cache.shards {
		cache.shards[i] = &cacheShard{store: map[string]*CacheEntry{}}
	}
	return cache
}

func (c *InMemoryCache) shard(key string) *cacheShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return c.shards[hash.Sum32()%cacheShardCount]
}

// Get returns a live entry, dropping it when expired.
func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.store[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(shard.store, key)
		return nil, false
	}
	return entry, true
}

// Set stores an entry for ttl.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	shard := c.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	entry.ExpiresAt = time.Now().Add(ttl)
	shard.store[key] = entry
}

// Delete removes an entry.
func (c *InMemoryCache) Delete(key string) {
	shard := c.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.store, key)
}

// Clear empties the cache.
func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = map[string]*CacheEntry{}
		shard.mu.Unlock()
	}
}

// Len counts live and expired entries across shards.
func (c *InMemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// DefaultCacheKeyFunc keys a request by verb and fully built URL.
func DefaultCacheKeyFunc(req *Request) string {
	return req.Method() + " " + req.URL()
}

// CachedGateway wraps another gateway with TTL response caching. Caching
// lives at the gateway boundary rather than in middleware because hooks
// cannot short-circuit the transport. Only successful GET responses below
// 400 are stored.
type CachedGateway struct {
	inner   Gateway
	cache   Cache
	ttl     time.Duration
	keyFunc func(*Request) string
}

// NewCachedGateway decorates inner with caching. A nil cache gets a fresh
// InMemoryCache.
func NewCachedGateway(inner Gateway, cache Cache, ttl time.Duration) *CachedGateway {
	if cache == nil {
		cache = NewInMemoryCache()
	}
	return &CachedGateway{inner: inner, cache: cache, ttl: ttl, keyFunc: DefaultCacheKeyFunc}
}

// WithKeyFunc replaces the cache key function.
func (g *CachedGateway) WithKeyFunc(fn func(*Request) string) *CachedGateway {
	g.keyFunc = fn
	return g
}

// Call implements Gateway.
func (g *CachedGateway) Call(ctx context.Context, req *Request, config GatewayConfig) (*Response, error) {
	if req.Method() != http.MethodGet {
		return g.inner.Call(ctx, req, config)
	}

	key := g.keyFunc(req)
	if entry, ok := g.cache.Get(key); ok {
		return NewResponse(req, entry.Status, entry.Headers, entry.Body), nil
	}

	resp, err := g.inner.Call(ctx, req, config)
	if err == nil && resp.Status() < 400 {
		g.cache.Set(key, &CacheEntry{
			Status:  resp.Status(),
			Headers: resp.Headers(),
			Body:    resp.RawBody(),
		}, g.ttl)
	}
	return resp, err
}
