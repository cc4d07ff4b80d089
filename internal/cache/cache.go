// Package cache implements the read-through entity cache. Every key
// follows one of two shapes: canonical "{table}:{primary_value}"
// holding the JSON blob of an entity, and reference
// "ref:{table}:{attr}:{value}" holding a canonical key. Readers
// dereference a reference key one hop. The cache is best effort: any
// backend failure degrades to the loader and the store stays
// authoritative.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds staleness for both canonical and reference keys.
const DefaultTTL = time.Hour

// ErrMiss is returned by a Backend when a key is absent.
var ErrMiss = errors.New("cache: miss")

// Backend is the raw keyspace the protocol runs over.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Entity is anything that can live in the cache under the key protocol.
type Entity interface {
	CacheKey() string
	CacheRefs() []string
}

// Cache applies the key protocol over a Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
}

// New returns a redis-backed cache with the default TTL.
func New(client redis.UniversalClient) *Cache {
	return &Cache{backend: &redisBackend{client: client}, ttl: DefaultTTL}
}

// NewWithTTL returns a redis-backed cache with a custom TTL.
func NewWithTTL(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{backend: &redisBackend{client: client}, ttl: ttl}
}

// NewNoop returns a cache that never hits and never stores. Used by
// the CLI, which runs without redis.
func NewNoop() *Cache {
	return &Cache{backend: noopBackend{}, ttl: DefaultTTL}
}

// Fetch resolves a lookup to a raw entity blob. It tries the canonical
// candidate first, then each reference candidate in order; the first
// reference hit is dereferenced one hop. A nil return is a miss.
// canonical may be empty when the caller only knows a reference
// attribute.
func (c *Cache) Fetch(ctx context.Context, canonical string, refs []string) []byte {
	if canonical != "" {
		if raw, ok := c.get(ctx, canonical); ok {
			return raw
		}
	}
	for _, ref := range refs {
		target, ok := c.get(ctx, ref)
		if !ok || len(target) == 0 {
			continue
		}
		raw, ok := c.get(ctx, string(target))
		if !ok {
			return nil
		}
		return raw
	}
	return nil
}

// StoreEntity serializes e under its canonical key and points every
// reference key at the canonical key, all with the cache TTL.
func (c *Cache) StoreEntity(ctx context.Context, e Entity) {
	blob, err := json.Marshal(e)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", e.CacheKey()).Msg("cache serialize failed")
		return
	}
	canonical := e.CacheKey()
	c.set(ctx, canonical, blob)
	for _, ref := range e.CacheRefs() {
		c.set(ctx, ref, []byte(canonical))
	}
}

// Invalidate deletes the canonical key and every reference key of e.
// Deletion is idempotent.
func (c *Cache) Invalidate(ctx context.Context, e Entity) {
	c.InvalidateKeys(ctx, append([]string{e.CacheKey()}, e.CacheRefs()...)...)
}

// InvalidateKeys deletes the given keys.
func (c *Cache) InvalidateKeys(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("cache delete failed")
	}
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return nil, false
	}
	return raw, true
}

func (c *Cache) set(ctx context.Context, key string, value []byte) {
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

type redisBackend struct {
	client redis.UniversalClient
}

func (b *redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return raw, err
}

func (b *redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *redisBackend) Del(ctx context.Context, keys ...string) error {
	return b.client.Del(ctx, keys...).Err()
}

type noopBackend struct{}

func (noopBackend) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (noopBackend) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (noopBackend) Del(context.Context, ...string) error { return nil }
