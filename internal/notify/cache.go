package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clydetadiwa/folio/internal/storage"
)

// loadFunc fetches the value for a key from the underlying repository.
type loadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// repoCache memoizes repository reads per key with a TTL and retries
// transient load failures. Not-found is terminal and never retried or
// cached. The notifier uses it so one publish burst doesn't hammer the
// database with identical entity and subscriber-list reads.
type repoCache[K comparable, V any] struct {
	mu          sync.Mutex
	entries     map[K]cacheEntry[V]
	ttl         time.Duration
	maxAttempts int
	retryDelay  time.Duration
	load        loadFunc[K, V]
}

type cacheEntry[V any] struct {
	val     V
	fetched time.Time
}

func newRepoCache[K comparable, V any](ttl time.Duration, maxAttempts int, retryDelay time.Duration, load loadFunc[K, V]) *repoCache[K, V] {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &repoCache[K, V]{
		entries:     make(map[K]cacheEntry[V]),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		load:        load,
	}
}

// Get returns the cached value for key when fresh, otherwise loads it with
// bounded retries.
func (c *repoCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Since(e.fetched) < c.ttl {
		v := e.val
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	var (
		zero    V
		lastErr error
	)
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 && c.retryDelay > 0 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := c.load(ctx, key)
		if err == nil {
			c.mu.Lock()
			c.entries[key] = cacheEntry[V]{val: v, fetched: time.Now()}
			c.mu.Unlock()
			return v, nil
		}
		if errors.Is(err, storage.ErrNotFound) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// Invalidate drops the cached value for key, forcing the next Get to load.
func (c *repoCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
