// Package catalog owns the single live copy of the store catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

var errNotLoaded = errors.New("catalog not loaded")

// Store holds the live catalog. The set of identities changes only on Load;
// individual entries are swapped atomically, so writers to different
// entries never contend and writers to the same entry are last-write-wins.
type Store struct {
	mu      sync.RWMutex
	order   []int
	entries map[int]*atomic.Pointer[domain.CatalogEntry]
	loaded  atomic.Bool
}

// NewStore returns an empty, not-yet-loaded store.
func NewStore() *Store {
	return &Store{entries: make(map[int]*atomic.Pointer[domain.CatalogEntry])}
}

// Load replaces the whole catalog. It is the only wholesale rebuild and is
// meant for snapshot load. Duplicate identities keep the first occurrence.
func (s *Store) Load(entries []domain.CatalogEntry) {
	order := make([]int, 0, len(entries))
	index := make(map[int]*atomic.Pointer[domain.CatalogEntry], len(entries))
	for i := range entries {
		e := entries[i]
		if _, dup := index[e.ID]; dup {
			continue
		}
		p := new(atomic.Pointer[domain.CatalogEntry])
		p.Store(&e)
		index[e.ID] = p
		order = append(order, e.ID)
	}

	s.mu.Lock()
	s.order = order
	s.entries = index
	s.mu.Unlock()
	s.loaded.Store(true)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns a copy of the entry with the given identity.
func (s *Store) Get(id int) (domain.CatalogEntry, bool) {
	p := s.slot(id)
	if p == nil {
		return domain.CatalogEntry{}, false
	}
	return *p.Load(), true
}

// Entries returns a copy of the catalog in load order.
func (s *Store) Entries() []domain.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CatalogEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id].Load())
	}
	return out
}

// Unresolved counts entries without coordinates.
func (s *Store) Unresolved() int {
	n := 0
	for _, e := range s.Entries() {
		if !e.Resolved() {
			n++
		}
	}
	return n
}

// PatchCoordinates sets coordinates on an unresolved entry. It reports
// false without writing when the entry already has coordinates, so a late
// or lower-confidence result never clobbers a known point.
func (s *Store) PatchCoordinates(id int, c domain.Coordinate) (bool, error) {
	p := s.slot(id)
	if p == nil {
		return false, fmt.Errorf("patch %d: %w", id, domain.ErrUnknownEntry)
	}
	for {
		cur := p.Load()
		if cur.Resolved() {
			return false, nil
		}
		next := cur.WithCoordinates(c)
		if p.CompareAndSwap(cur, &next) {
			return true, nil
		}
	}
}

// RefreshCoordinates overwrites an entry's coordinates unconditionally.
func (s *Store) RefreshCoordinates(id int, c domain.Coordinate) error {
	return s.update(id, func(e domain.CatalogEntry) (domain.CatalogEntry, bool) {
		return e.WithCoordinates(c), true
	})
}

// MergeRows refreshes descriptive fields from a fresh source fetch. Address
// and coordinates are kept. Rows for unknown identities are ignored. It
// returns the number of entries that changed.
func (s *Store) MergeRows(rows []domain.MartRow) int {
	updated := 0
	for _, row := range rows {
		fresh := row.ToEntry()
		err := s.update(fresh.ID, func(e domain.CatalogEntry) (domain.CatalogEntry, bool) {
			next := e
			if fresh.Name != "" {
				next.Name = fresh.Name
			}
			next.Phone = fresh.Phone
			next.Hours = fresh.Hours
			next.Description = fresh.Description
			if next == e {
				return e, false
			}
			return next, true
		})
		if err == nil {
			updated++
		}
	}
	return updated
}

// CheckReadiness reports an error until a catalog has been loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	if !s.loaded.Load() {
		return errNotLoaded
	}
	return nil
}

var errUnchanged = errors.New("unchanged")

// update applies fn to one entry with a compare-and-swap loop. fn returns
// false to skip the write.
func (s *Store) update(id int, fn func(domain.CatalogEntry) (domain.CatalogEntry, bool)) error {
	p := s.slot(id)
	if p == nil {
		return fmt.Errorf("update %d: %w", id, domain.ErrUnknownEntry)
	}
	for {
		cur := p.Load()
		next, ok := fn(*cur)
		if !ok {
			return errUnchanged
		}
		if p.CompareAndSwap(cur, &next) {
			return nil
		}
	}
}

func (s *Store) slot(id int) *atomic.Pointer[domain.CatalogEntry] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}
