package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/couchcryptid/mart-locator/internal/spatial"
)

// koreaBounds frames the whole catalog.
const koreaBounds = "33,124,39,132"

var (
	clustersBounds string
	clustersZoom   int
	clustersExpand int
)

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Print map clusters for a viewport and zoom",
	Args:  cobra.NoArgs,
	RunE:  runClusters,
}

func init() {
	f := clustersCmd.Flags()
	f.StringVar(&clustersBounds, "bounds", koreaBounds, "viewport as swLat,swLng,neLat,neLng")
	f.IntVar(&clustersZoom, "zoom", 7, "map zoom level")
	f.IntVar(&clustersExpand, "expand", -1, "print the children of this cluster id instead")
}

func runClusters(cmd *cobra.Command, _ []string) error {
	bounds, err := geo.ParseBounds(clustersBounds)
	if err != nil {
		return err
	}
	store, err := loadCatalog(cmd.Context(), cfg.SnapshotPath)
	if err != nil {
		return err
	}
	entries := store.Entries()
	names := make(map[int]string, len(entries))
	for _, e := range entries {
		names[e.ID] = e.Name
	}

	idx := spatial.Build(entries, clusterOptions())
	out := cmd.OutOrStdout()

	if clustersExpand >= 0 {
		children, err := idx.Children(clustersExpand)
		if err != nil {
			return err
		}
		printClusters(out, children, names)
		return nil
	}

	points := idx.Clusters(bounds, clustersZoom)
	fmt.Fprintf(out, "%d points at zoom %d (%d of %d marts indexed)\n", len(points), clustersZoom, idx.Len(), len(entries))
	printClusters(out, points, names)
	return nil
}

func printClusters(w io.Writer, points []spatial.ClusterPoint, names map[int]string) {
	for _, p := range points {
		if p.Cluster {
			fmt.Fprintf(w, "cluster %-6d %4d marts  %s  expands at zoom %d\n",
				p.ClusterID, p.Count, p.Coordinate, p.ExpansionZoom)
			continue
		}
		fmt.Fprintf(w, "mart    %-6d %s  %s\n", p.EntryID, p.Coordinate, names[p.EntryID])
	}
}
