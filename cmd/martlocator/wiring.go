package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/couchcryptid/mart-locator/internal/adapter/kafka"
	"github.com/couchcryptid/mart-locator/internal/adapter/mnd"
	"github.com/couchcryptid/mart-locator/internal/adapter/naver"
	"github.com/couchcryptid/mart-locator/internal/adapter/snapshot"
	"github.com/couchcryptid/mart-locator/internal/catalog"
	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/couchcryptid/mart-locator/internal/pipeline"
	"github.com/couchcryptid/mart-locator/internal/spatial"
)

// newGeocoder returns the cached Naver client. Without credentials it
// reports domain.ErrServiceUnavailable from Ready.
func newGeocoder(metrics *observability.Metrics) domain.Geocoder {
	if !cfg.NaverEnabled {
		logger.Info("naver geocoding disabled")
		metrics.GeocodeEnabled.Set(0)
	} else {
		logger.Info("naver geocoding enabled",
			"cache_size", cfg.GeocodeCacheSize,
			"timeout", cfg.NaverTimeout,
			"rate_limit", cfg.NaverRateLimit,
		)
		metrics.GeocodeEnabled.Set(1)
	}
	id, secret := cfg.NaverClientID, cfg.NaverClientSecret
	if !cfg.NaverEnabled {
		id, secret = "", ""
	}
	client := naver.NewClient(id, secret, cfg.NaverTimeout, cfg.NaverRateLimit, metrics, logger)
	return naver.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
}

func newCatalogSource() *mnd.Client {
	return mnd.NewClient(cfg.CatalogAPIKey, cfg.CatalogBaseURL, cfg.CatalogTimeout, logger)
}

// newStatusSink fans status lines out to log and, when enabled, Kafka. The
// returned func closes the Kafka producer.
func newStatusSink(log *pipeline.StatusLog) (pipeline.StatusSink, func()) {
	sinks := pipeline.FanOut{log}
	if !cfg.KafkaEnabled {
		return sinks, func() {}
	}
	w := kafka.NewStatusWriter(cfg, logger)
	logger.Info("publishing pipeline status to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaStatusTopic)
	return append(sinks, w), func() {
		if err := w.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}

func pipelineOptions() pipeline.Options {
	return pipeline.Options{
		BatchSize:  cfg.BatchSize,
		BatchDelay: cfg.BatchDelay,
		FetchStart: cfg.CatalogFetchStart,
		FetchEnd:   cfg.CatalogFetchEnd,
		RunTimeout: cfg.RunTimeout,
	}
}

func clusterOptions() spatial.Options {
	return spatial.Options{
		Radius:    cfg.ClusterRadius,
		Extent:    cfg.ClusterExtent,
		MinZoom:   cfg.ClusterMinZoom,
		MaxZoom:   cfg.ClusterMaxZoom,
		MinPoints: 2,
	}
}

// loadCatalog reads the snapshot into a fresh live store.
func loadCatalog(ctx context.Context, path string) (*catalog.Store, error) {
	entries, err := snapshot.NewFileStore(path).Load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no snapshot at %s (run generate first): %w", path, err)
		}
		return nil, err
	}
	store := catalog.NewStore()
	store.Load(entries)
	logger.Debug("snapshot loaded", "path", path, "entries", store.Len(), "unresolved", store.Unresolved())
	return store, nil
}
