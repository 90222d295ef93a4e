package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog source.
	CatalogAPIKey     string
	CatalogBaseURL    string
	CatalogTimeout    time.Duration
	CatalogFetchStart int
	CatalogFetchEnd   int
	CatalogRefreshEnd int

	// Naver geocoding.
	NaverClientID     string
	NaverClientSecret string
	NaverEnabled      bool
	NaverTimeout      time.Duration
	NaverRateLimit    float64
	GeocodeCacheSize  int

	// Batch pipeline.
	BatchSize    int
	BatchDelay   time.Duration
	RunTimeout   time.Duration
	SnapshotPath string

	// Clustering.
	ClusterRadius  float64
	ClusterExtent  float64
	ClusterMinZoom int
	ClusterMaxZoom int

	// On-demand resolution and proximity.
	NearbyLimit        int
	MaxResolveAttempts int
	LocateTimeout      time.Duration
	NearbyRadiusKm     float64

	// Status events.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaStatusTopic string
}

// MaxFetchWindow caps how many catalog rows one run may request.
const MaxFetchWindow = 5000

var defaults = map[string]string{
	"HTTP_ADDR":        ":8080",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "json",
	"SHUTDOWN_TIMEOUT": "10s",

	"CATALOG_BASE_URL":    "http://openapi.mnd.go.kr",
	"CATALOG_TIMEOUT":     "10s",
	"CATALOG_FETCH_START": "1",
	"CATALOG_FETCH_END":   "5000",
	"CATALOG_REFRESH_END": "1000",

	"NAVER_TIMEOUT":      "5s",
	"NAVER_RATE_LIMIT":   "10",
	"GEOCODE_CACHE_SIZE": "1000",

	"BATCH_SIZE":    "10",
	"BATCH_DELAY":   "100ms",
	"RUN_TIMEOUT":   "30m",
	"SNAPSHOT_PATH": "data/marts.json",

	"CLUSTER_RADIUS":   "75",
	"CLUSTER_EXTENT":   "512",
	"CLUSTER_MIN_ZOOM": "0",
	"CLUSTER_MAX_ZOOM": "20",

	"NEARBY_LIMIT":         "10",
	"MAX_RESOLVE_ATTEMPTS": "3",
	"LOCATE_TIMEOUT":       "3s",
	"NEARBY_RADIUS_KM":     "0.5",

	"KAFKA_ENABLED":      "false",
	"KAFKA_BROKERS":      "localhost:9092",
	"KAFKA_STATUS_TOPIC": "mart-pipeline-status",
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	p := parser{v: v}

	cfg := &Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT"),

		CatalogAPIKey:     v.GetString("CATALOG_API_KEY"),
		CatalogBaseURL:    v.GetString("CATALOG_BASE_URL"),
		CatalogTimeout:    p.duration("CATALOG_TIMEOUT"),
		CatalogFetchStart: p.intRange("CATALOG_FETCH_START", 1, 1<<30),
		CatalogFetchEnd:   p.intRange("CATALOG_FETCH_END", 1, 1<<30),
		CatalogRefreshEnd: p.intRange("CATALOG_REFRESH_END", 0, 1<<30),

		NaverClientID:     v.GetString("NAVER_CLIENT_ID"),
		NaverClientSecret: v.GetString("NAVER_CLIENT_SECRET"),
		NaverTimeout:      p.duration("NAVER_TIMEOUT"),
		NaverRateLimit:    p.float("NAVER_RATE_LIMIT", 0),
		GeocodeCacheSize:  p.intRange("GEOCODE_CACHE_SIZE", 1, 1_000_000),

		BatchSize:    p.intRange("BATCH_SIZE", 1, 1000),
		BatchDelay:   p.durationAllowZero("BATCH_DELAY"),
		RunTimeout:   p.duration("RUN_TIMEOUT"),
		SnapshotPath: v.GetString("SNAPSHOT_PATH"),

		ClusterRadius:  p.float("CLUSTER_RADIUS", 1),
		ClusterExtent:  p.float("CLUSTER_EXTENT", 1),
		ClusterMinZoom: p.intRange("CLUSTER_MIN_ZOOM", 0, 30),
		ClusterMaxZoom: p.intRange("CLUSTER_MAX_ZOOM", 0, 30),

		NearbyLimit:        p.intRange("NEARBY_LIMIT", 1, 100),
		MaxResolveAttempts: p.intRange("MAX_RESOLVE_ATTEMPTS", 1, 100),
		LocateTimeout:      p.duration("LOCATE_TIMEOUT"),
		NearbyRadiusKm:     p.float("NEARBY_RADIUS_KM", 0),

		KafkaEnabled:     p.boolean("KAFKA_ENABLED"),
		KafkaBrokers:     parseBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaStatusTopic: v.GetString("KAFKA_STATUS_TOPIC"),
	}
	if p.err != nil {
		return nil, p.err
	}

	cfg.NaverEnabled = cfg.NaverClientID != "" && cfg.NaverClientSecret != ""
	if s := v.GetString("NAVER_ENABLED"); s != "" {
		cfg.NaverEnabled = p.boolean("NAVER_ENABLED")
		if p.err != nil {
			return nil, p.err
		}
	}

	if cfg.CatalogFetchEnd < cfg.CatalogFetchStart {
		return nil, errors.New("CATALOG_FETCH_END must not be below CATALOG_FETCH_START")
	}
	if cfg.CatalogFetchEnd-cfg.CatalogFetchStart+1 > MaxFetchWindow {
		return nil, fmt.Errorf("catalog fetch window exceeds %d rows", MaxFetchWindow)
	}
	if cfg.ClusterMinZoom > cfg.ClusterMaxZoom {
		return nil, errors.New("CLUSTER_MIN_ZOOM must not exceed CLUSTER_MAX_ZOOM")
	}
	if cfg.NaverEnabled && (cfg.NaverClientID == "" || cfg.NaverClientSecret == "") {
		return nil, errors.New("NAVER_ENABLED is true but NAVER_CLIENT_ID or NAVER_CLIENT_SECRET is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaStatusTopic == "" {
		return nil, errors.New("KAFKA_STATUS_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.SnapshotPath == "" {
		return nil, errors.New("SNAPSHOT_PATH is required")
	}

	return cfg, nil
}

// parser records the first parse failure so Load can report one error.
type parser struct {
	v   *viper.Viper
	err error
}

func (p *parser) fail(key string) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s", key)
	}
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.v.GetString(key))
	if err != nil || d <= 0 {
		p.fail(key)
		return 0
	}
	return d
}

func (p *parser) durationAllowZero(key string) time.Duration {
	d, err := time.ParseDuration(p.v.GetString(key))
	if err != nil || d < 0 {
		p.fail(key)
		return 0
	}
	return d
}

func (p *parser) intRange(key string, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(p.v.GetString(key)))
	if err != nil || n < lo || n > hi {
		p.fail(key)
		return 0
	}
	return n
}

func (p *parser) float(key string, lo float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(p.v.GetString(key)), 64)
	if err != nil || f < lo {
		p.fail(key)
		return 0
	}
	return f
}

func (p *parser) boolean(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(p.v.GetString(key)))
	if err != nil {
		p.fail(key)
		return false
	}
	return b
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
