// Package proximity orders catalog entries by distance from an origin.
package proximity

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
)

const (
	// DefaultLocateTimeout bounds a user-location lookup.
	DefaultLocateTimeout = 3 * time.Second
	// DefaultNearbyRadiusKm is the "you are here" radius.
	DefaultNearbyRadiusKm = 0.5
)

// Ranked pairs an entry with its distance from the origin. Distance is
// negative for unresolved entries.
type Ranked struct {
	Entry      domain.CatalogEntry
	DistanceKm float64
}

// Resolved reports whether the distance is meaningful.
func (r Ranked) Resolved() bool {
	return r.DistanceKm >= 0
}

// Rank returns entries ordered by ascending great-circle distance from
// origin. Unresolved entries follow all resolved ones in input order. Ties
// keep input order. The input slice is not modified.
func Rank(entries []domain.CatalogEntry, origin domain.Coordinate) []domain.CatalogEntry {
	ranked := RankWithDistance(entries, origin)
	out := make([]domain.CatalogEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.Entry
	}
	return out
}

// RankWithDistance is Rank with the computed distances attached.
func RankWithDistance(entries []domain.CatalogEntry, origin domain.Coordinate) []Ranked {
	ranked := make([]Ranked, len(entries))
	for i, e := range entries {
		d := -1.0
		if e.Coordinates != nil {
			d = geo.DistanceKm(origin, *e.Coordinates)
		}
		ranked[i] = Ranked{Entry: e, DistanceKm: d}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Resolved() && !b.Resolved():
			return -1
		case !a.Resolved() && b.Resolved():
			return 1
		case !a.Resolved():
			return 0
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		}
		return 0
	})
	return ranked
}

// Locator supplies the user's current position.
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinate, error)
}

// StaticLocator always reports the same position.
type StaticLocator domain.Coordinate

// Locate implements Locator.
func (s StaticLocator) Locate(context.Context) (domain.Coordinate, error) {
	return domain.Coordinate(s), nil
}

// LocateOrigin asks loc for a position, giving up after timeout (the
// default when timeout <= 0). Any failure yields ok == false; callers
// proceed without an origin.
func LocateOrigin(ctx context.Context, loc Locator, timeout time.Duration, logger *slog.Logger) (domain.Coordinate, bool) {
	if loc == nil {
		return domain.Coordinate{}, false
	}
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		c   domain.Coordinate
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := loc.Locate(ctx)
		ch <- result{c, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil || !r.c.Valid() {
			logger.Debug("location unavailable", "error", r.err)
			return domain.Coordinate{}, false
		}
		return r.c, true
	case <-ctx.Done():
		logger.Debug("location lookup timed out", "timeout", timeout)
		return domain.Coordinate{}, false
	}
}

// RankFrom ranks entries from the located origin, or returns a copy in
// input order when no origin is available.
func RankFrom(ctx context.Context, entries []domain.CatalogEntry, loc Locator, timeout time.Duration, logger *slog.Logger) []domain.CatalogEntry {
	origin, ok := LocateOrigin(ctx, loc, timeout, logger)
	if !ok {
		return slices.Clone(entries)
	}
	return Rank(entries, origin)
}

// IsNearby reports whether c lies within radiusKm of origin. A radius <= 0
// uses DefaultNearbyRadiusKm.
func IsNearby(origin, c domain.Coordinate, radiusKm float64) bool {
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	return geo.DistanceKm(origin, c) <= radiusKm
}
