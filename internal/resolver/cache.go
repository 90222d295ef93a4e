package resolver

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CacheEntry is the per-identity resolution record.
type CacheEntry struct {
	Coordinate *domain.Coordinate
	Attempts   int
}

// Cache maps entry identity to its last successful coordinate and counts
// resolution attempts. Concurrent resolutions of the same identity are
// coalesced into one provider call. It has no eviction; the catalog is
// thousands of entries, not millions.
type Cache struct {
	maxAttempts int

	mu      sync.Mutex
	entries map[int]*CacheEntry
	group   singleflight.Group
}

// NewCache creates a cache capping attempts per identity at maxAttempts
// (<= 0 means unlimited).
func NewCache(maxAttempts int) *Cache {
	return &Cache{
		maxAttempts: maxAttempts,
		entries:     make(map[int]*CacheEntry),
	}
}

// Lookup returns the cached coordinate for id.
func (c *Cache) Lookup(id int) (domain.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.Coordinate == nil {
		return domain.Coordinate{}, false
	}
	return *e.Coordinate, true
}

// Attempts returns how many resolutions have been started for id.
func (c *Cache) Attempts(id int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.Attempts
	}
	return 0
}

// Store records a coordinate learned elsewhere, e.g. from the snapshot.
func (c *Cache) Store(id int, coord domain.Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(id).Coordinate = &coord
}

// Resolve runs fn for id unless a coordinate is already cached. Callers
// arriving while a resolution for id is in flight share its result and do
// not count as a new attempt.
func (c *Cache) Resolve(ctx context.Context, id int, fn func(context.Context) (domain.Coordinate, error)) (domain.Coordinate, error) {
	v, err, _ := c.group.Do(strconv.Itoa(id), func() (any, error) {
		if coord, ok := c.Lookup(id); ok {
			return coord, nil
		}
		if err := c.begin(id); err != nil {
			return domain.Coordinate{}, err
		}
		coord, err := fn(ctx)
		if err != nil {
			return domain.Coordinate{}, err
		}
		c.Store(id, coord)
		return coord, nil
	})
	if err != nil {
		return domain.Coordinate{}, err
	}
	return v.(domain.Coordinate), nil
}

func (c *Cache) begin(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.record(id)
	if c.maxAttempts > 0 && e.Attempts >= c.maxAttempts {
		return fmt.Errorf("entry %d after %d attempts: %w", id, e.Attempts, domain.ErrAttemptsExhausted)
	}
	e.Attempts++
	return nil
}

// record returns the entry for id, creating it. Callers hold c.mu.
func (c *Cache) record(id int) *CacheEntry {
	e, ok := c.entries[id]
	if !ok {
		e = &CacheEntry{}
		c.entries[id] = e
	}
	return e
}
