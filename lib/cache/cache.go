// Copyright 2026 The Monzofs Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/monzofs/monzofs/lib/clock"
)

// FetchFunc retrieves the value for a key from the remote source. It
// is invoked at most once per expiry window per key regardless of how
// many callers are waiting.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Cache is a TTL-bounded memoization cache. Values older than the TTL
// are refreshed on access; concurrent refreshes for the same key are
// coalesced into one fetch; a failed refresh returns the previous
// value when one exists.
//
// Entries are replaced wholesale on refresh and never explicitly
// deleted — the namespace is read-only, so there is no invalidation
// path.
//
// Cache is safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	entries map[K]*entry[V]
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
	hasValue  bool

	// inflight is the fetch currently underway for this key, if any.
	// At most one exists at a time; joining callers wait on its done
	// channel.
	inflight *flight[V]
}

type flight[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// New constructs a Cache with the given TTL and clock.
func New[K comparable, V any](ttl time.Duration, clk clock.Clock) *Cache[K, V] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Cache[K, V]{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[K]*entry[V]),
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the cached value for key, fetching through fetch on a
// miss or after expiry. Semantics:
//
//   - Fresh hit: the cached value is returned without invoking fetch.
//   - Miss or expiry: exactly one fetch runs per key even under
//     concurrent callers; all callers for that key observe the same
//     result.
//   - Failed refresh with a prior value: the stale value is returned
//     and the error is swallowed. The entry's timestamp is not
//     advanced, so the next call past the TTL retries the fetch.
//   - Failed fetch with no prior value: the error is returned.
//
// The context belongs to the caller that initiates the fetch. There is
// no cancellation of an issued fetch: coalesced callers wait for it to
// complete, and a caller that would have given up still benefits once
// the result lands in the cache.
func (c *Cache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[V]) (V, error) {
	c.mu.Lock()
	cacheEntry := c.entries[key]
	if cacheEntry == nil {
		cacheEntry = &entry[V]{}
		c.entries[key] = cacheEntry
	}

	if cacheEntry.hasValue && c.clock.Now().Sub(cacheEntry.fetchedAt) < c.ttl {
		value := cacheEntry.value
		c.mu.Unlock()
		return value, nil
	}

	if current := cacheEntry.inflight; current != nil {
		c.mu.Unlock()
		<-current.done
		return current.value, current.err
	}

	current := &flight[V]{done: make(chan struct{})}
	cacheEntry.inflight = current
	c.mu.Unlock()

	value, err := fetch(ctx)

	c.mu.Lock()
	cacheEntry.inflight = nil
	switch {
	case err == nil:
		cacheEntry.value = value
		cacheEntry.fetchedAt = c.clock.Now()
		cacheEntry.hasValue = true
		current.value = value
	case cacheEntry.hasValue:
		// Serve-stale-on-error: prefer the previous value over the
		// failure. The stale timestamp stands, so the next caller
		// retries the fetch.
		current.value = cacheEntry.value
	default:
		current.err = err
	}
	c.mu.Unlock()

	close(current.done)
	return current.value, current.err
}
