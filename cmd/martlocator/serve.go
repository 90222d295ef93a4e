package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/mart-locator/internal/adapter/http"
	"github.com/couchcryptid/mart-locator/internal/adapter/mnd"
	"github.com/couchcryptid/mart-locator/internal/adapter/snapshot"
	"github.com/couchcryptid/mart-locator/internal/catalog"
	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/couchcryptid/mart-locator/internal/pipeline"
	"github.com/couchcryptid/mart-locator/internal/resolver"
)

const catalogGaugeInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the snapshot and serve the catalog and ops API",
	Long:  "Loads the snapshot into the live catalog, refreshes descriptive fields from the source, and serves nearest-mart queries, on-demand resolution, health, metrics and pipeline control endpoints until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// liveSnapshot saves the snapshot and, when the live catalog has never been
// loaded, loads the freshly written entries into it.
type liveSnapshot struct {
	file     *snapshot.FileStore
	store    *catalog.Store
	resolver *resolver.Resolver
}

func (s liveSnapshot) Save(ctx context.Context, entries []domain.CatalogEntry) (int, error) {
	n, err := s.file.Save(ctx, entries)
	if err != nil {
		return n, err
	}
	if s.store.CheckReadiness(ctx) != nil {
		s.store.Load(entries)
		logger.Info("live catalog loaded from new snapshot", "entries", n, "cached", s.resolver.Seed())
	}
	return n, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	metrics := observability.NewMetrics()

	store := catalog.NewStore()
	file := snapshot.NewFileStore(cfg.SnapshotPath)
	if entries, err := file.Load(ctx); err != nil {
		logger.Warn("snapshot not loaded; not ready until a pipeline run completes", "path", cfg.SnapshotPath, "error", err)
	} else {
		store.Load(entries)
		logger.Info("snapshot loaded", "path", cfg.SnapshotPath, "entries", store.Len(), "unresolved", store.Unresolved())
	}

	geocoder := newGeocoder(metrics)
	res := resolver.New(geocoder, store, resolver.NewCache(cfg.MaxResolveAttempts), logger, metrics, cfg.NearbyLimit)
	if n := res.Seed(); n > 0 {
		logger.Info("resolution cache seeded from snapshot", "entries", n)
	}

	source := newCatalogSource()
	if cfg.CatalogAPIKey != "" && cfg.CatalogRefreshEnd > 0 && store.Len() > 0 {
		go refreshCatalog(ctx, source, store)
	}
	go reportCatalogSize(ctx, store, metrics)

	statusLog := pipeline.NewStatusLog(0)
	sink, closeSink := newStatusSink(statusLog)
	defer closeSink()

	opts := pipelineOptions()
	opts.Live = store
	p := pipeline.New(source, geocoder, liveSnapshot{file: file, store: store, resolver: res}, sink, logger, metrics, opts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, p, statusLog, logger)
	srv.HandleEntries(store, res, httpadapter.EntryOptions{
		LocateTimeout:  cfg.LocateTimeout,
		NearbyRadiusKm: cfg.NearbyRadiusKm,
		NearbyLimit:    cfg.NearbyLimit,
	})

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if st := p.Status(); st.State == domain.StateRunning || st.State == domain.StateSaving {
		logger.Warn("canceling pipeline run", "run_id", st.RunID, "progress", st.Progress)
	}
	if err := p.Stop(shutdownCtx); err != nil {
		logger.Error("pipeline did not stop before shutdown timeout", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// refreshCatalog pulls fresh rows and merges their descriptive fields into
// the live catalog, keeping addresses and coordinates.
func refreshCatalog(ctx context.Context, source *mnd.Client, store *catalog.Store) {
	page, err := source.FetchRange(ctx, 1, cfg.CatalogRefreshEnd)
	if err != nil {
		logger.Warn("catalog refresh failed", "error", err)
		return
	}
	updated := store.MergeRows(page.Rows)
	logger.Info("catalog refreshed", "rows", len(page.Rows), "updated", updated)
}

func reportCatalogSize(ctx context.Context, store *catalog.Store, metrics *observability.Metrics) {
	ticker := time.NewTicker(catalogGaugeInterval)
	defer ticker.Stop()
	for {
		metrics.CatalogEntries.Set(float64(store.Len()))
		metrics.CatalogUnresolved.Set(float64(store.Unresolved()))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
