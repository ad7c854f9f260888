// Package config loads service settings from environment variables, with
// defaults applied where unset.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/heatrelief/site-registry-etl/internal/adapter/arcgis"
)

// Config holds all pipeline settings.
type Config struct {
	REDCapURL     string
	REDCapToken   string
	REDCapTimeout time.Duration

	// Mapbox geocoding configuration. Absent credentials disable the
	// external geocoder; the run then keeps whatever coordinates the
	// previous snapshot provides.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	SeasonYear int
	StateCode  string

	SnapshotDir string
	ArchiveDir  string

	PushgatewayURL string
	LogLevel       string
	LogFormat      string

	ArcGIS arcgis.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	redcapTimeout, err := durationEnv("REDCAP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := durationEnv("MAPBOX_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	seasonYear, err := intEnv("SEASON_YEAR", time.Now().Year())
	if err != nil {
		return nil, err
	}
	arcgisBatch, err := intEnv("ARCGIS_BATCH_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	arcgisTimeout, err := durationEnv("ARCGIS_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		REDCapURL:     os.Getenv("REDCAP_API_URL"),
		REDCapToken:   os.Getenv("REDCAP_API_TOKEN"),
		REDCapTimeout: redcapTimeout,

		MapboxToken:   mapboxToken,
		MapboxEnabled: mapboxEnabled,
		MapboxTimeout: mapboxTimeout,

		SeasonYear: seasonYear,
		StateCode:  envOrDefault("STATE_CODE", "AZ"),

		SnapshotDir: envOrDefault("SNAPSHOT_DIR", "data/public"),
		ArchiveDir:  envOrDefault("ARCHIVE_DIR", "data/archives"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),

		ArcGIS: arcgis.Config{
			Username:  os.Getenv("ARCGIS_USERNAME"),
			Password:  os.Getenv("ARCGIS_PASSWORD"),
			OrgURL:    envOrDefault("ARCGIS_ORG_URL", "https://www.arcgis.com"),
			LayerURL:  os.Getenv("ARCGIS_LAYER_URL"),
			BatchSize: arcgisBatch,
			Timeout:   arcgisTimeout,
		},
	}

	if cfg.REDCapURL == "" {
		return nil, errors.New("REDCAP_API_URL is required")
	}
	if cfg.REDCapToken == "" {
		return nil, errors.New("REDCAP_API_TOKEN is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.ArcGIS.Username != "" && cfg.ArcGIS.Password == "" {
		return nil, errors.New("ARCGIS_USERNAME is set but ARCGIS_PASSWORD is not")
	}
	if cfg.ArcGIS.Username != "" && cfg.ArcGIS.LayerURL == "" {
		return nil, errors.New("ARCGIS_USERNAME is set but ARCGIS_LAYER_URL is not")
	}

	return cfg, nil
}
