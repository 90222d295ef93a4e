package proximity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var seoulStation = domain.Coordinate{Lat: 37.5547, Lng: 126.9707}

func at(id int, lat, lng float64) domain.CatalogEntry {
	return domain.CatalogEntry{ID: id, Name: "mart", Coordinates: &domain.Coordinate{Lat: lat, Lng: lng}}
}

func unresolved(id int) domain.CatalogEntry {
	return domain.CatalogEntry{ID: id, Name: "mart", Address: "somewhere"}
}

func ids(entries []domain.CatalogEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func sampleEntries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		unresolved(1),
		at(2, 35.1796, 129.0756), // Busan
		at(3, 37.5665, 126.9780), // City Hall
		unresolved(4),
		at(5, 37.4563, 126.7052), // Incheon
	}
}

func TestRank_OrderAndUnresolvedLast(t *testing.T) {
	got := Rank(sampleEntries(), seoulStation)
	assert.Equal(t, []int{3, 5, 2, 1, 4}, ids(got))
}

func TestRank_DistanceMonotonic(t *testing.T) {
	ranked := RankWithDistance(sampleEntries(), seoulStation)
	prev := 0.0
	for _, r := range ranked {
		if !r.Resolved() {
			continue
		}
		assert.GreaterOrEqual(t, r.DistanceKm, prev)
		assert.InDelta(t, geo.DistanceKm(seoulStation, *r.Entry.Coordinates), r.DistanceKm, 1e-9)
		prev = r.DistanceKm
	}
	assert.False(t, ranked[len(ranked)-1].Resolved())
}

func TestRank_StableForTies(t *testing.T) {
	entries := []domain.CatalogEntry{
		at(10, 37.5, 127.0),
		unresolved(11),
		at(12, 37.5, 127.0),
		at(13, 37.5, 127.0),
		unresolved(14),
	}
	got := Rank(entries, seoulStation)
	assert.Equal(t, []int{10, 12, 13, 11, 14}, ids(got))
}

func TestRank_Idempotent(t *testing.T) {
	once := Rank(sampleEntries(), seoulStation)
	twice := Rank(once, seoulStation)
	if diff := cmp.Diff(ids(once), ids(twice)); diff != "" {
		t.Errorf("re-ranking changed order (-once +twice):\n%s", diff)
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	entries := sampleEntries()
	before := ids(entries)
	_ = Rank(entries, seoulStation)
	assert.Equal(t, before, ids(entries))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, seoulStation))
}

type slowLocator struct{ delay time.Duration }

func (s slowLocator) Locate(ctx context.Context) (domain.Coordinate, error) {
	select {
	case <-time.After(s.delay):
		return seoulStation, nil
	case <-ctx.Done():
		return domain.Coordinate{}, ctx.Err()
	}
}

type failingLocator struct{}

func (failingLocator) Locate(context.Context) (domain.Coordinate, error) {
	return domain.Coordinate{}, errors.New("permission denied")
}

func TestLocateOrigin(t *testing.T) {
	tests := []struct {
		name   string
		loc    Locator
		wantOK bool
	}{
		{name: "static", loc: StaticLocator(seoulStation), wantOK: true},
		{name: "nil locator", loc: nil, wantOK: false},
		{name: "failure", loc: failingLocator{}, wantOK: false},
		{name: "timeout", loc: slowLocator{delay: time.Second}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			c, ok := LocateOrigin(context.Background(), tt.loc, 20*time.Millisecond, discardLogger())
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, seoulStation, c)
			}
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}

func TestRankFrom(t *testing.T) {
	entries := sampleEntries()

	t.Run("with origin", func(t *testing.T) {
		got := RankFrom(context.Background(), entries, StaticLocator(seoulStation), 0, discardLogger())
		assert.Equal(t, []int{3, 5, 2, 1, 4}, ids(got))
	})

	t.Run("without origin keeps input order", func(t *testing.T) {
		got := RankFrom(context.Background(), entries, failingLocator{}, 0, discardLogger())
		require.Len(t, got, len(entries))
		assert.Equal(t, ids(entries), ids(got))
	})
}

func TestIsNearby(t *testing.T) {
	cityHall := domain.Coordinate{Lat: 37.5665, Lng: 126.9780}

	assert.True(t, IsNearby(cityHall, cityHall, 0))
	assert.True(t, IsNearby(cityHall, domain.Coordinate{Lat: 37.5685, Lng: 126.9780}, 0)) // ~220 m
	assert.False(t, IsNearby(cityHall, seoulStation, 0))                                  // ~1.4 km
	assert.True(t, IsNearby(cityHall, seoulStation, 2))
}
