// Package cache provides the in-memory TTL cache that sits between the
// fetch orchestrator and the data providers. Entries live for a fixed
// duration and expire lazily: an expired entry behaves exactly like a
// missing one and is removed when next touched. Nothing survives the
// process.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"tvltracker/internal/tvl"
)

// DefaultTTL is the cache lifetime used when no TTL is configured.
const DefaultTTL = 5 * time.Minute

type entry struct {
	data       *tvl.RawData
	insertedAt time.Time
}

// Cache is a mutex-guarded TTL key/value store for raw provider responses.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   clockwork.Clock
}

// New creates a Cache with the given TTL. The clock is injected so expiry
// can be tested without sleeping; production callers pass
// clockwork.NewRealClock().
func New(ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clock,
	}
}

// Get returns the cached data for key. An entry older than the TTL is
// treated as absent and deleted on the way out.
func (c *Cache) Get(key string) (*tvl.RawData, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.clock.Since(e.insertedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock: the entry may have been refreshed
		// between the read above and acquiring the lock.
		if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(e.insertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.data, true
}

// Set stores data under key, replacing any previous entry and restarting
// its TTL.
func (c *Cache) Set(key string, data *tvl.RawData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		data:       data,
		insertedAt: c.clock.Now(),
	}
}

// Len returns the number of stored entries, expired ones included until
// they are evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Key builds the deterministic cache key for a fetch query.
// Format: tvl:{protocol}:{chain}:{pool}:{provider}, all segments
// lower-cased so case variants of the same query share one slot.
// Examples:
//   - tvl:silo:sonic::defillama
//   - tvl:shadow:sonic:usdc.e-ws:kingdom-subgraph
func Key(protocol, chain, pool, provider string) string {
	segments := []string{"tvl", protocol, chain, pool, provider}
	for i, s := range segments {
		segments[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join(segments, ":")
}
