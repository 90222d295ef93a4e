package spatial

import (
	"testing"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seoulA = domain.Coordinate{Lat: 37.5665, Lng: 126.9780}
	seoulB = domain.Coordinate{Lat: 37.5667, Lng: 126.9782}
	busan  = domain.Coordinate{Lat: 35.1796, Lng: 129.0756}

	korea = geo.Bounds{
		SW: domain.Coordinate{Lat: 33, Lng: 124},
		NE: domain.Coordinate{Lat: 39, Lng: 132},
	}
)

func entryAt(id int, c domain.Coordinate) domain.CatalogEntry {
	return domain.CatalogEntry{ID: id, Name: "mart", Coordinates: &c}
}

func threeMarts() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		entryAt(1, seoulA),
		entryAt(2, seoulB),
		entryAt(3, busan),
	}
}

func splitPoints(points []ClusterPoint) (clusters, leaves []ClusterPoint) {
	for _, p := range points {
		if p.Cluster {
			clusters = append(clusters, p)
		} else {
			leaves = append(leaves, p)
		}
	}
	return clusters, leaves
}

func TestClusters_ZoomZeroMergesEverything(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	points := idx.Clusters(korea, 0)
	require.Len(t, points, 1)
	assert.True(t, points[0].Cluster)
	assert.Equal(t, 3, points[0].Count)
	assert.InDelta(t, 36.8, points[0].Coordinate.Lat, 1.0)
}

func TestClusters_CityZoom(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	clusters, leaves := splitPoints(idx.Clusters(korea, 10))
	require.Len(t, clusters, 1)
	require.Len(t, leaves, 1)

	assert.Equal(t, 2, clusters[0].Count)
	assert.InDelta(t, 37.5666, clusters[0].Coordinate.Lat, 1e-4)
	assert.InDelta(t, 126.9781, clusters[0].Coordinate.Lng, 1e-4)
	assert.Equal(t, 18, clusters[0].ExpansionZoom)

	assert.Equal(t, 3, leaves[0].EntryID)
	assert.Equal(t, busan, leaves[0].Coordinate)
}

func TestClusters_ExpansionZoomSplitsCluster(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	clusters, _ := splitPoints(idx.Clusters(korea, 10))
	require.Len(t, clusters, 1)

	z, err := idx.ExpansionZoom(clusters[0].ClusterID)
	require.NoError(t, err)
	assert.Equal(t, 18, z)

	clusters, leaves := splitPoints(idx.Clusters(korea, z))
	assert.Empty(t, clusters)
	assert.Len(t, leaves, 3)
}

func TestClusters_MaxZoomReturnsLeaves(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	for _, z := range []int{20, 25} {
		clusters, leaves := splitPoints(idx.Clusters(korea, z))
		assert.Empty(t, clusters, "zoom %d", z)
		assert.Len(t, leaves, 3, "zoom %d", z)
	}
}

func TestClusters_NegativeZoomClamped(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())
	assert.Equal(t, idx.Clusters(korea, 0), idx.Clusters(korea, -3))
}

func TestClusters_ViewportExcludesOutside(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())
	seoul := geo.Bounds{
		SW: domain.Coordinate{Lat: 37, Lng: 126},
		NE: domain.Coordinate{Lat: 38, Lng: 128},
	}

	points := idx.Clusters(seoul, 10)
	require.Len(t, points, 1)
	assert.True(t, points[0].Cluster)
	assert.Equal(t, 2, points[0].Count)

	// Still indexed; just not in view.
	assert.Equal(t, 3, idx.Len())
}

func TestClusters_AntimeridianViewport(t *testing.T) {
	idx := Build([]domain.CatalogEntry{
		entryAt(1, domain.Coordinate{Lat: 0, Lng: 179.9}),
		entryAt(2, domain.Coordinate{Lat: 0, Lng: -179.9}),
		entryAt(3, domain.Coordinate{Lat: 0, Lng: 0}),
	}, DefaultOptions())

	wrap := geo.Bounds{
		SW: domain.Coordinate{Lat: -1, Lng: 179},
		NE: domain.Coordinate{Lat: 1, Lng: -179},
	}
	points := idx.Clusters(wrap, 20)
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[0].EntryID)
	assert.Equal(t, 2, points[1].EntryID)
}

func TestBuild_SkipsUnresolved(t *testing.T) {
	entries := append(threeMarts(), domain.CatalogEntry{ID: 4, Name: "no coords"})
	idx := Build(entries, DefaultOptions())

	assert.Equal(t, 3, idx.Len())
	for _, p := range idx.Clusters(korea, 20) {
		assert.NotEqual(t, 4, p.EntryID)
	}
}

func TestBuild_Empty(t *testing.T) {
	idx := Build(nil, DefaultOptions())
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Clusters(korea, 5))
}

func TestExpansionZoom_IdenticalPointsCapped(t *testing.T) {
	idx := Build([]domain.CatalogEntry{
		entryAt(1, seoulA),
		entryAt(2, seoulA),
	}, DefaultOptions())

	points := idx.Clusters(korea, 19)
	require.Len(t, points, 1)
	require.True(t, points[0].Cluster)
	assert.Equal(t, 20, points[0].ExpansionZoom)

	// Rendered individually at max zoom even though they coincide.
	assert.Len(t, idx.Clusters(korea, 20), 2)
}

func TestExpansionZoom_UnknownCluster(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	_, err := idx.ExpansionZoom(0) // leaf, not a cluster
	require.Error(t, err)
	_, err = idx.ExpansionZoom(999)
	require.Error(t, err)
}

func TestChildrenAndLeaves(t *testing.T) {
	idx := Build(threeMarts(), DefaultOptions())

	points := idx.Clusters(korea, 0)
	require.Len(t, points, 1)
	root := points[0]
	assert.Equal(t, 4, root.ExpansionZoom)

	children, err := idx.Children(root.ClusterID)
	require.NoError(t, err)
	clusters, leaves := splitPoints(children)
	require.Len(t, clusters, 1)
	require.Len(t, leaves, 1)
	assert.Equal(t, 2, clusters[0].Count)
	assert.Equal(t, 3, leaves[0].EntryID)

	ids, err := idx.Leaves(root.ClusterID, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, ids)

	ids, err = idx.Leaves(root.ClusterID, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestOptions_Defaults(t *testing.T) {
	idx := Build(nil, Options{})
	assert.Equal(t, DefaultOptions(), idx.Options())
}

func TestProjectionRoundTrip(t *testing.T) {
	for _, c := range []domain.Coordinate{seoulA, busan, {Lat: -33.86, Lng: 151.2}} {
		assert.InDelta(t, c.Lat, yLat(latY(c.Lat)), 1e-9)
		assert.InDelta(t, c.Lng, xLng(lngX(c.Lng)), 1e-9)
	}
}
