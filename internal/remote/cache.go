// Package remote provides a stale-tolerant TTL cache for rate-limited
// external data. Readers accept data up to the key's TTL old; when a
// refetch fails they accept arbitrarily stale data instead of erroring.
package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mtholden/attend/internal/logging"
)

// ErrUnauthenticated marks a collaborator that needs sign-in. It is never
// satisfied from stale cache: the caller must surface a sign-in prompt,
// not old data.
var ErrUnauthenticated = errors.New("unauthenticated")

type entry struct {
	payload   any
	fetchedAt time.Time
}

// Cache holds one entry per key with independent TTLs. Last fetch wins.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry), now: time.Now}
}

// SetNow overrides the clock, for tests.
func (c *Cache) SetNow(now func() time.Time) { c.now = now }

// Result wraps a cached payload with its freshness.
type Result[T any] struct {
	Payload   T
	Stale     bool
	FetchedAt time.Time
}

// Fetch returns the cached payload for key if younger than ttl, otherwise
// invokes fetcher. On fetch success the cache is overwritten; on failure
// a previously cached payload is returned marked stale. Unauthenticated
// errors propagate without stale fallback.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetcher func(context.Context) (T, error)) (Result[T], error) {
	c.mu.Lock()
	cached, ok := c.entries[key]
	now := c.now()
	c.mu.Unlock()

	if ok && now.Sub(cached.fetchedAt) < ttl {
		return Result[T]{Payload: cached.payload.(T), FetchedAt: cached.fetchedAt}, nil
	}

	payload, err := fetcher(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Result[T]{}, err
		}
		if ok {
			logging.Debug("remote", "fetch %s failed, serving stale (%s old): %v",
				key, now.Sub(cached.fetchedAt).Round(time.Second), err)
			return Result[T]{Payload: cached.payload.(T), Stale: true, FetchedAt: cached.fetchedAt}, nil
		}
		return Result[T]{}, err
	}

	c.mu.Lock()
	c.entries[key] = entry{payload: payload, fetchedAt: now}
	c.mu.Unlock()

	return Result[T]{Payload: payload, FetchedAt: now}, nil
}
