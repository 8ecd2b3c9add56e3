package suggestions

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long fetched suggestions stay valid.
const DefaultCacheTTL = 24 * time.Hour

// Cache holds the most recent successful fetch.
type Cache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	entries   []Suggestion
	fetchedAt time.Time
}

// NewCache constructs an empty cache; a non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl}
}

// Store replaces the cached entries.
func (c *Cache) Store(entries []Suggestion, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]Suggestion(nil), entries...)
	c.fetchedAt = fetchedAt
}

// IsValid reports whether the cache holds a fetch younger than the ttl.
func (c *Cache) IsValid(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.valid(now)
}

func (c *Cache) valid(now time.Time) bool {
	return !c.fetchedAt.IsZero() && now.Sub(c.fetchedAt) < c.ttl
}

// Get returns up to limit valid entries and whether the cache could satisfy it.
func (c *Cache) Get(now time.Time, limit int) ([]Suggestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid(now) || len(c.entries) < limit {
		return nil, false
	}
	return append([]Suggestion(nil), c.entries[:limit]...), true
}

// Lookup finds a cached entry by ID regardless of age.
func (c *Cache) Lookup(id string) (Suggestion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.entries {
		if s.ID == id {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.fetchedAt = time.Time{}
}
