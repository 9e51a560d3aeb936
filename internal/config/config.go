package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMetricsAddr     = ":9090"
	defaultScanAPIBaseURL  = "http://localhost:5000"
	defaultScanAPITimeout  = 30 * time.Second
	defaultRefreshInterval = 5 * time.Minute
	defaultPageSize        = 25
	defaultMigrationsDir   = "db/migrations"
)

type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	MetricsAddr     string
	ScanAPIBaseURL  string
	ScanAPIToken    string
	ScanAPITimeout  time.Duration
	RefreshInterval time.Duration
	DefaultPageSize int
	CatalogPath     string
	MigrationsDir   string
	ResyncEnabled   bool
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:     getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		ScanAPIBaseURL:  getenvDefault("SCAN_API_BASE_URL", defaultScanAPIBaseURL),
		ScanAPIToken:    strings.TrimSpace(os.Getenv("SCAN_API_TOKEN")),
		DefaultPageSize: getenvIntDefault("DEFAULT_PAGE_SIZE", defaultPageSize),
		CatalogPath:     strings.TrimSpace(os.Getenv("CATALOG_PATH")),
		MigrationsDir:   getenvDefault("MIGRATIONS_DIR", defaultMigrationsDir),
		ResyncEnabled:   getenvBoolDefault("RESYNC_ENABLED", true),
	}

	var err error
	if cfg.ScanAPITimeout, err = getenvDurationDefault("SCAN_API_TIMEOUT", defaultScanAPITimeout); err != nil {
		return cfg, err
	}
	if cfg.RefreshInterval, err = getenvDurationDefault("REFRESH_INTERVAL", defaultRefreshInterval); err != nil {
		return cfg, err
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// getenvDurationDefault rejects malformed or non-positive durations instead of
// silently falling back, so a typo does not disable the refresh loop.
func getenvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
