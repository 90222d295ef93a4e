package naver

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
)

// CachedGeocoder wraps a Geocoder with bounded in-memory LRU caches. Many
// fallback queries collapse to the same three-token prefix, so repeated
// lookups are common within one batch run.
type CachedGeocoder struct {
	inner   domain.Geocoder
	forward *lru.Cache[string, domain.Coordinate]
	reverse *lru.Cache[string, string]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder. Each
// direction holds at most maxEntries results (minimum 1).
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	maxEntries = max(1, maxEntries)
	// New only fails for a non-positive size.
	forward, _ := lru.New[string, domain.Coordinate](maxEntries)
	reverse, _ := lru.New[string, string](maxEntries)
	return &CachedGeocoder{
		inner:   inner,
		forward: forward,
		reverse: reverse,
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Ready() error {
	return c.inner.Ready()
}

func (c *CachedGeocoder) Forward(ctx context.Context, address string) (domain.Coordinate, error) {
	key := strings.Join(strings.Fields(address), " ")
	if coord, ok := c.forward.Get(key); ok {
		c.record("forward", "hit")
		return coord, nil
	}
	c.record("forward", "miss")
	coord, err := c.inner.Forward(ctx, address)
	if err != nil {
		// Errors, including not-found, are never cached so they can be retried.
		return coord, err
	}
	c.forward.Add(key, coord)
	return coord, nil
}

func (c *CachedGeocoder) Reverse(ctx context.Context, at domain.Coordinate) (string, error) {
	key := fmt.Sprintf("%.5f,%.5f", at.Lat, at.Lng)
	if addr, ok := c.reverse.Get(key); ok {
		c.record("reverse", "hit")
		return addr, nil
	}
	c.record("reverse", "miss")
	addr, err := c.inner.Reverse(ctx, at)
	if err != nil {
		return addr, err
	}
	c.reverse.Add(key, addr)
	return addr, nil
}

func (c *CachedGeocoder) record(method, result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(method, result).Inc()
	}
}
