package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/mart-locator/internal/adapter/snapshot"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/couchcryptid/mart-locator/internal/pipeline"
)

var generateOut string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Geocode the full catalog and write the snapshot",
	Long:  "Fetches the configured catalog window, geocodes every entry in rate-limited batches and atomically replaces the snapshot file.",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "snapshot path (default SNAPSHOT_PATH)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if cfg.CatalogAPIKey == "" {
		return errors.New("CATALOG_API_KEY is required for generate")
	}
	path := cfg.SnapshotPath
	if generateOut != "" {
		path = generateOut
	}

	metrics := observability.NewMetrics()
	geocoder := newGeocoder(metrics)
	statusLog := pipeline.NewStatusLog(0)
	sink, closeSink := newStatusSink(statusLog)
	defer closeSink()

	p := pipeline.New(newCatalogSource(), geocoder, snapshot.NewFileStore(path), sink, logger, metrics, pipelineOptions())

	res, err := p.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("generate snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d entries to %s in %s\n", res.Saved, path, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  resolved:   %d (%d via fallback)\n", res.Resolved, res.Fallback)
	fmt.Fprintf(out, "  unresolved: %d\n", res.Unresolved)
	return nil
}
