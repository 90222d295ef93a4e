// Package resolver geocodes individual catalog entries at the moment they
// are needed and writes the results back into the live catalog.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/mart-locator/internal/catalog"
	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
)

// DefaultNearbyLimit bounds provider calls per area search.
const DefaultNearbyLimit = 10

// Resolver resolves single entries on demand.
type Resolver struct {
	geocoder    domain.Geocoder
	store       *catalog.Store
	cache       *Cache
	logger      *slog.Logger
	metrics     *observability.Metrics
	nearbyLimit int
}

// New creates a Resolver. nearbyLimit <= 0 uses DefaultNearbyLimit.
func New(geocoder domain.Geocoder, store *catalog.Store, cache *Cache, logger *slog.Logger, metrics *observability.Metrics, nearbyLimit int) *Resolver {
	if nearbyLimit <= 0 {
		nearbyLimit = DefaultNearbyLimit
	}
	return &Resolver{
		geocoder:    geocoder,
		store:       store,
		cache:       cache,
		logger:      logger,
		metrics:     metrics,
		nearbyLimit: nearbyLimit,
	}
}

// Resolve returns the entry's coordinate, geocoding its address when it is
// not yet known. Known coordinates never trigger a provider call. Failures
// wrap domain.ErrUnresolvable and are not retried.
func (r *Resolver) Resolve(ctx context.Context, entry domain.CatalogEntry) (domain.Coordinate, error) {
	if coord, ok := r.known(entry); ok {
		r.count("cached")
		return coord, nil
	}
	if coord, ok := r.cache.Lookup(entry.ID); ok {
		r.writeThrough(entry.ID, coord)
		r.count("cached")
		return coord, nil
	}

	address := entry.Address
	if live, ok := r.store.Get(entry.ID); ok && live.Address != "" {
		address = live.Address
	}
	if strings.TrimSpace(address) == "" {
		r.count("unresolvable")
		return domain.Coordinate{}, fmt.Errorf("entry %d has no address: %w", entry.ID, domain.ErrUnresolvable)
	}

	coord, err := r.cache.Resolve(ctx, entry.ID, func(ctx context.Context) (domain.Coordinate, error) {
		return r.geocoder.Forward(ctx, address)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAttemptsExhausted) {
			r.count("exhausted")
		} else {
			r.count("unresolvable")
		}
		r.logger.Info("on-demand resolution failed",
			"entry_id", entry.ID,
			"address", address,
			"outcome", domain.OutcomeOf(err),
			"error", err,
		)
		return domain.Coordinate{}, fmt.Errorf("resolve entry %d: %w: %w", entry.ID, domain.ErrUnresolvable, err)
	}
	// Every caller writes through; the patch is a no-op once resolved.
	r.writeThrough(entry.ID, coord)
	r.count("resolved")
	return coord, nil
}

// ResolveByID resolves the live catalog entry with the given identity.
func (r *Resolver) ResolveByID(ctx context.Context, id int) (domain.CatalogEntry, error) {
	entry, ok := r.store.Get(id)
	if !ok {
		return domain.CatalogEntry{}, fmt.Errorf("resolve %d: %w", id, domain.ErrUnknownEntry)
	}
	coord, err := r.Resolve(ctx, entry)
	if err != nil {
		return entry, err
	}
	return entry.WithCoordinates(coord), nil
}

// ResolveNearby resolves, one at a time, the unresolved entries among the
// first limit entries and returns how many became resolved. limit <= 0 uses
// the configured default. Individual failures are logged and skipped.
func (r *Resolver) ResolveNearby(ctx context.Context, entries []domain.CatalogEntry, limit int) (int, error) {
	if limit <= 0 {
		limit = r.nearbyLimit
	}
	candidates := entries[:min(limit, len(entries))]

	resolved := 0
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		if _, ok := r.known(e); ok {
			continue
		}
		if _, err := r.Resolve(ctx, e); err != nil {
			continue
		}
		resolved++
	}
	return resolved, nil
}

// AreaResult describes one area search.
type AreaResult struct {
	Address  string
	Keyword  string
	Matches  int
	Resolved int
}

// SearchArea reverse-geocodes center, matches live entries whose address
// contains the area's district keyword, and resolves the first of them.
func (r *Resolver) SearchArea(ctx context.Context, center domain.Coordinate) (AreaResult, error) {
	address, err := r.geocoder.Reverse(ctx, center)
	if err != nil {
		return AreaResult{}, fmt.Errorf("reverse geocode %s: %w", center, err)
	}
	res := AreaResult{Address: address, Keyword: domain.DistrictKeyword(address)}
	if res.Keyword == "" {
		return res, fmt.Errorf("area %q: %w", address, domain.ErrNoNearbyEntries)
	}

	var matches []domain.CatalogEntry
	for _, e := range r.store.Entries() {
		if strings.Contains(e.Address, res.Keyword) {
			matches = append(matches, e)
		}
	}
	res.Matches = len(matches)
	if len(matches) == 0 {
		return res, fmt.Errorf("area %q: %w", res.Keyword, domain.ErrNoNearbyEntries)
	}

	res.Resolved, err = r.ResolveNearby(ctx, matches, r.nearbyLimit)
	r.logger.Info("area search complete",
		"keyword", res.Keyword,
		"matches", res.Matches,
		"resolved", res.Resolved,
	)
	return res, err
}

// SetCoordinates overwrites the coordinate of a live entry, for corrections
// from an operator. The cache is updated too so later resolutions agree.
func (r *Resolver) SetCoordinates(id int, c domain.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("coordinate %s out of range", c)
	}
	if err := r.store.RefreshCoordinates(id, c); err != nil {
		return err
	}
	r.cache.Store(id, c)
	r.logger.Info("entry coordinates set", "entry_id", id, "lat", c.Lat, "lng", c.Lng)
	return nil
}

// Seed records the coordinates of every resolved live entry in the cache and
// returns how many were recorded.
func (r *Resolver) Seed() int {
	n := 0
	for _, e := range r.store.Entries() {
		if e.Coordinates != nil {
			r.cache.Store(e.ID, *e.Coordinates)
			n++
		}
	}
	return n
}

// known reports a coordinate already present on the entry or in the live
// catalog.
func (r *Resolver) known(e domain.CatalogEntry) (domain.Coordinate, bool) {
	if e.Coordinates != nil {
		return *e.Coordinates, true
	}
	if live, ok := r.store.Get(e.ID); ok && live.Coordinates != nil {
		return *live.Coordinates, true
	}
	return domain.Coordinate{}, false
}

func (r *Resolver) writeThrough(id int, coord domain.Coordinate) {
	if _, err := r.store.PatchCoordinates(id, coord); err != nil {
		r.logger.Debug("entry not in live catalog", "entry_id", id, "error", err)
	}
}

func (r *Resolver) count(outcome string) {
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(outcome).Inc()
	}
}
