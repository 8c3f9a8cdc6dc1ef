// Package cache is the in-process read-through store that short-circuits
// the fetch pipeline for a fixed time window.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"stockprovider/internal/quote"
)

// DefaultTTL is the process-wide time-to-live applied when none is
// configured.
const DefaultTTL = 3600 * time.Second

type entry struct {
	storedAt time.Time
	payload  quote.Series
}

// Cache maps a deterministic key to a previously computed series.
// Expiry is lazy: entries expire at Get time, there is no eviction
// sweep. Safe for concurrent use.
type Cache struct {
	TTL time.Duration
	Now func() time.Time // nil means time.Now; injectable for tests

	mu    sync.RWMutex
	items map[string]entry
}

// New returns a cache with the given TTL, or DefaultTTL when ttl <= 0.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{TTL: ttl, items: make(map[string]entry)}
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Get returns the payload stored under key. A miss never distinguishes
// "never stored" from "expired".
func (c *Cache) Get(key string) (quote.Series, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.storedAt.Add(c.TTL)) {
		return nil, false
	}
	return e.payload, true
}

// Put stores payload under key, overwriting any previous entry.
// Concurrent writers race benignly: last write wins.
func (c *Cache) Put(key string, payload quote.Series) {
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[string]entry)
	}
	c.items[key] = entry{storedAt: c.now(), payload: payload}
	c.mu.Unlock()
}

// nullToken is the fixed sentinel for absent key parameters, so that
// "no range" is never conflated with an empty-string range.
const nullToken = "null"

const dateLayout = "2006-01-02"

// Key derives the deterministic cache key from every parameter that
// affects the result: operation, canonical symbol, granularity, and
// either the lookback duration or the literal start/end pair.
func Key(op, symbol string, g quote.Granularity, lookbackYears int, start, end *time.Time) string {
	parts := []string{op, symbol, string(g), nullToken, nullToken, nullToken}
	if lookbackYears > 0 {
		parts[3] = "y" + strconv.Itoa(lookbackYears)
	}
	if start != nil {
		parts[4] = start.UTC().Format(dateLayout)
	}
	if end != nil {
		parts[5] = end.UTC().Format(dateLayout)
	}
	return strings.Join(parts, ":")
}
