// Package spatial clusters resolved catalog entries for map display.
//
// Points are projected to unit Web Mercator space. For every zoom from
// MaxZoom-1 down to MinZoom, points of the next finer level that lie within
// Radius/(Extent*2^zoom) of each other merge into a weighted-centroid
// cluster. Each level is kept in its own R-tree so viewport queries are
// cheap. At MaxZoom and beyond, points are always returned individually.
package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/dhconnelly/rtreego"
)

const (
	treeMinChildren = 25
	treeMaxChildren = 50
	pointTolerance  = 1e-12
)

// Options tunes clustering.
type Options struct {
	Radius    float64 // cluster radius in screen pixels
	Extent    float64 // tile extent in pixels the radius is relative to
	MinZoom   int
	MaxZoom   int // at and above this zoom points are never clustered
	MinPoints int
}

// DefaultOptions returns the map defaults: radius 75, extent 512, zoom 0-20.
func DefaultOptions() Options {
	return Options{Radius: 75, Extent: 512, MinZoom: 0, MaxZoom: 20, MinPoints: 2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.MinPoints < 2 {
		o.MinPoints = d.MinPoints
	}
	if o.MinZoom < 0 {
		o.MinZoom = 0
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.MaxZoom < o.MinZoom {
		o.MaxZoom = o.MinZoom
	}
	return o
}

// ClusterPoint is either a single entry (Cluster false) or an aggregate.
type ClusterPoint struct {
	Coordinate domain.Coordinate
	Count      int

	// Leaf fields.
	EntryID int

	// Aggregate fields.
	Cluster       bool
	ClusterID     int
	ExpansionZoom int
}

type node struct {
	x, y     float64
	coord    domain.Coordinate // exact for leaves, unprojected centroid for clusters
	count    int
	entryID  int
	children []int
	zoom     int // zoom the cluster was formed at; MaxZoom for leaves
}

// item is a node reference stored in a level's R-tree.
type item struct {
	idx  int
	x, y float64
}

func (it *item) Bounds() rtreego.Rect {
	return rtreego.Point{it.x, it.y}.ToRect(pointTolerance)
}

// Index is an immutable cluster hierarchy over a set of entries. It keeps
// entry identities only and is safe for concurrent queries.
type Index struct {
	opts   Options
	nodes  []node
	leaves int
	trees  map[int]*rtreego.Rtree
}

// Build indexes every resolved entry. Unresolved entries and invalid
// coordinates are skipped.
func Build(entries []domain.CatalogEntry, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		opts:  opts,
		trees: make(map[int]*rtreego.Rtree, opts.MaxZoom-opts.MinZoom+1),
	}

	level := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.Coordinates == nil || !e.Coordinates.Valid() {
			continue
		}
		c := *e.Coordinates
		idx.nodes = append(idx.nodes, node{
			x:       lngX(c.Lng),
			y:       latY(c.Lat),
			coord:   c,
			count:   1,
			entryID: e.ID,
			zoom:    opts.MaxZoom,
		})
		level = append(level, len(idx.nodes)-1)
	}
	idx.leaves = len(idx.nodes)
	idx.trees[opts.MaxZoom] = idx.newTree(level)

	for z := opts.MaxZoom - 1; z >= opts.MinZoom; z-- {
		level = idx.clusterLevel(level, idx.trees[z+1], z)
		idx.trees[z] = idx.newTree(level)
	}
	return idx
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return idx.leaves
}

// Options returns the effective options.
func (idx *Index) Options() Options {
	return idx.opts
}

// Clusters returns the points visible in bounds at zoom. Entries outside
// the viewport are omitted but stay in the index.
func (idx *Index) Clusters(bounds geo.Bounds, zoom int) []ClusterPoint {
	z := min(max(zoom, idx.opts.MinZoom), idx.opts.MaxZoom)
	tree := idx.trees[z]

	minY, maxY := latY(bounds.NE.Lat), latY(bounds.SW.Lat)
	var hits []int
	if bounds.CrossesAntimeridian() {
		hits = append(hits, idx.search(tree, lngX(bounds.SW.Lng), minY, 1, maxY)...)
		hits = append(hits, idx.search(tree, 0, minY, lngX(bounds.NE.Lng), maxY)...)
	} else {
		hits = idx.search(tree, lngX(bounds.SW.Lng), minY, lngX(bounds.NE.Lng), maxY)
	}
	sort.Ints(hits)

	out := make([]ClusterPoint, 0, len(hits))
	for _, i := range hits {
		out = append(out, idx.point(i))
	}
	return out
}

// ExpansionZoom returns the zoom at which the cluster splits into its
// children, capped at MaxZoom.
func (idx *Index) ExpansionZoom(clusterID int) (int, error) {
	n, err := idx.cluster(clusterID)
	if err != nil {
		return 0, err
	}
	return min(n.zoom+1, idx.opts.MaxZoom), nil
}

// Children returns the points a cluster splits into at its expansion zoom.
func (idx *Index) Children(clusterID int) ([]ClusterPoint, error) {
	n, err := idx.cluster(clusterID)
	if err != nil {
		return nil, err
	}
	out := make([]ClusterPoint, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, idx.point(c))
	}
	return out, nil
}

// Leaves returns the entry identities inside a cluster, at most limit of
// them (limit <= 0 means all), in index order.
func (idx *Index) Leaves(clusterID, limit int) ([]int, error) {
	if _, err := idx.cluster(clusterID); err != nil {
		return nil, err
	}
	var ids []int
	var walk func(i int) bool
	walk = func(i int) bool {
		n := idx.nodes[i]
		if i < idx.leaves {
			ids = append(ids, n.entryID)
			return limit <= 0 || len(ids) < limit
		}
		for _, c := range n.children {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(clusterID)
	return ids, nil
}

func (idx *Index) cluster(id int) (node, error) {
	if id < idx.leaves || id >= len(idx.nodes) {
		return node{}, fmt.Errorf("no cluster with id %d", id)
	}
	return idx.nodes[id], nil
}

func (idx *Index) point(i int) ClusterPoint {
	n := idx.nodes[i]
	if i < idx.leaves {
		return ClusterPoint{Coordinate: n.coord, Count: 1, EntryID: n.entryID}
	}
	return ClusterPoint{
		Coordinate:    n.coord,
		Count:         n.count,
		Cluster:       true,
		ClusterID:     i,
		ExpansionZoom: min(n.zoom+1, idx.opts.MaxZoom),
	}
}

// clusterLevel merges the nodes of the finer level prev into the level for
// zoom z and returns the node indices present at z.
func (idx *Index) clusterLevel(prev []int, tree *rtreego.Rtree, z int) []int {
	r := idx.opts.Radius / (idx.opts.Extent * math.Pow(2, float64(z)))
	processed := make(map[int]bool, len(prev))
	next := make([]int, 0, len(prev))

	for _, i := range prev {
		if processed[i] {
			continue
		}
		processed[i] = true
		p := idx.nodes[i]

		count := p.count
		var members []int
		for _, j := range idx.within(tree, p.x, p.y, r) {
			if processed[j] {
				continue
			}
			members = append(members, j)
			count += idx.nodes[j].count
		}
		for _, j := range members {
			processed[j] = true
		}

		if len(members) == 0 || count < idx.opts.MinPoints {
			next = append(next, i)
			next = append(next, members...)
			continue
		}

		wx, wy := p.x*float64(p.count), p.y*float64(p.count)
		for _, j := range members {
			m := idx.nodes[j]
			wx += m.x * float64(m.count)
			wy += m.y * float64(m.count)
		}
		cx, cy := wx/float64(count), wy/float64(count)
		id := len(idx.nodes)
		idx.nodes = append(idx.nodes, node{
			x:        cx,
			y:        cy,
			coord:    domain.Coordinate{Lat: yLat(cy), Lng: xLng(cx)},
			count:    count,
			entryID:  -1,
			children: append([]int{i}, members...),
			zoom:     z,
		})
		next = append(next, id)
	}
	return next
}

func (idx *Index) newTree(level []int) *rtreego.Rtree {
	objs := make([]rtreego.Spatial, 0, len(level))
	for _, i := range level {
		objs = append(objs, &item{idx: i, x: idx.nodes[i].x, y: idx.nodes[i].y})
	}
	return rtreego.NewTree(2, treeMinChildren, treeMaxChildren, objs...)
}

// within returns nodes whose projected position lies within r of (x, y).
func (idx *Index) within(tree *rtreego.Rtree, x, y, r float64) []int {
	var out []int
	for _, i := range idx.search(tree, x-r, y-r, x+r, y+r) {
		n := idx.nodes[i]
		dx, dy := n.x-x, n.y-y
		if dx*dx+dy*dy <= r*r {
			out = append(out, i)
		}
	}
	return out
}

// search returns the nodes inside the projected box.
func (idx *Index) search(tree *rtreego.Rtree, minX, minY, maxX, maxY float64) []int {
	if tree == nil || tree.Size() == 0 {
		return nil
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{max(maxX-minX, pointTolerance), max(maxY-minY, pointTolerance)},
	)
	if err != nil {
		return nil
	}
	found := tree.SearchIntersect(rect)
	out := make([]int, 0, len(found))
	for _, s := range found {
		out = append(out, s.(*item).idx)
	}
	return out
}

// Web Mercator projection to and from the unit square.

func lngX(lng float64) float64 {
	return lng/360 + 0.5
}

func latY(lat float64) float64 {
	s := math.Sin(lat * math.Pi / 180)
	y := 0.5 - 0.25*math.Log((1+s)/(1-s))/math.Pi
	return min(max(y, 0), 1)
}

func xLng(x float64) float64 {
	return (x - 0.5) * 360
}

func yLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}
