package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mart-locator/internal/adapter/snapshot"
	"github.com/couchcryptid/mart-locator/internal/directions"
	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/geo"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/couchcryptid/mart-locator/internal/proximity"
	"github.com/couchcryptid/mart-locator/internal/resolver"
)

var (
	nearestOrigin     string
	nearestLimit      int
	nearestResolve    bool
	nearestSave       bool
	nearestDirections string
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "List marts ordered by distance from a point",
	Long:  "Ranks the snapshot by great-circle distance from --origin. With --resolve, unresolved marts in the origin's district are geocoded first.",
	Args:  cobra.NoArgs,
	RunE:  runNearest,
}

func init() {
	f := nearestCmd.Flags()
	f.StringVar(&nearestOrigin, "origin", "", "reference point as lat,lng (input order when omitted)")
	f.IntVar(&nearestLimit, "limit", 10, "number of marts to print (0 for all)")
	f.BoolVar(&nearestResolve, "resolve", false, "geocode unresolved marts near the origin before ranking")
	f.BoolVar(&nearestSave, "save", false, "write coordinates resolved with --resolve back to the snapshot")
	f.StringVar(&nearestDirections, "directions", "", "print a directions link per mart: naver or kakao")
}

func runNearest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var provider directions.Provider
	if nearestDirections != "" {
		p, err := directions.ParseProvider(nearestDirections)
		if err != nil {
			return err
		}
		provider = p
	}

	var loc proximity.Locator
	if nearestOrigin != "" {
		c, err := geo.ParseCoordinate(nearestOrigin)
		if err != nil {
			return err
		}
		loc = proximity.StaticLocator(c)
	}
	origin, hasOrigin := proximity.LocateOrigin(ctx, loc, cfg.LocateTimeout, logger)

	store, err := loadCatalog(ctx, cfg.SnapshotPath)
	if err != nil {
		return err
	}

	if nearestResolve {
		if !hasOrigin {
			return errors.New("--resolve needs --origin")
		}
		metrics := observability.NewMetrics()
		r := resolver.New(newGeocoder(metrics), store, resolver.NewCache(cfg.MaxResolveAttempts), logger, metrics, cfg.NearbyLimit)
		area, err := r.SearchArea(ctx, origin)
		switch {
		case errors.Is(err, domain.ErrNoNearbyEntries):
			fmt.Fprintf(cmd.ErrOrStderr(), "no marts listed for %q\n", area.Keyword)
		case err != nil:
			fmt.Fprintf(cmd.ErrOrStderr(), "area search failed: %v\n", err)
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d marts match %q, %d newly resolved\n",
				area.Address, area.Matches, area.Keyword, area.Resolved)
			if nearestSave && area.Resolved > 0 {
				n, err := snapshot.NewFileStore(cfg.SnapshotPath).Save(ctx, store.Entries())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %d entries to %s\n", n, cfg.SnapshotPath)
			}
		}
	}

	var ranked []proximity.Ranked
	if hasOrigin {
		ranked = proximity.RankWithDistance(store.Entries(), origin)
	} else {
		for _, e := range store.Entries() {
			ranked = append(ranked, proximity.Ranked{Entry: e, DistanceKm: -1})
		}
	}
	if nearestLimit > 0 && len(ranked) > nearestLimit {
		ranked = ranked[:nearestLimit]
	}

	var start *domain.Coordinate
	if hasOrigin {
		start = &origin
	}
	return printRanked(cmd.OutOrStdout(), ranked, start, provider)
}

func printRanked(w io.Writer, ranked []proximity.Ranked, origin *domain.Coordinate, provider directions.Provider) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "#\tID\tNAME\tDISTANCE\tACCESS"
	if provider != "" {
		header += "\tDIRECTIONS"
	}
	fmt.Fprintln(tw, header)

	for i, r := range ranked {
		dist := "-"
		if r.Resolved() {
			dist = fmt.Sprintf("%.2f km", r.DistanceKm)
			if origin != nil && proximity.IsNearby(*origin, *r.Entry.Coordinates, cfg.NearbyRadiusKm) {
				dist += " *"
			}
		}
		line := fmt.Sprintf("%d\t%d\t%s\t%s\t%s", i+1, r.Entry.ID, r.Entry.Name, dist, r.Entry.AccessLevel)
		if provider != "" {
			link := "-"
			if u, err := directions.URL(provider, r.Entry, origin); err == nil {
				link = u
			}
			line += "\t" + link
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}
