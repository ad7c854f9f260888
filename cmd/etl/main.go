package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/heatrelief/site-registry-etl/internal/adapter/mapbox"
	"github.com/heatrelief/site-registry-etl/internal/adapter/redcap"
	"github.com/heatrelief/site-registry-etl/internal/adapter/snapshot"
	"github.com/heatrelief/site-registry-etl/internal/config"
	"github.com/heatrelief/site-registry-etl/internal/domain"
	"github.com/heatrelief/site-registry-etl/internal/observability"
	"github.com/heatrelief/site-registry-etl/internal/pipeline"
)

func main() {
	// Local runs keep credentials in .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()

	// Geocoder is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN. Without
	// it, sites keep whatever coordinates the previous snapshot carries.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger)
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	source := redcap.NewClient(cfg.REDCapURL, cfg.REDCapToken, cfg.REDCapTimeout, logger)
	store := snapshot.NewStore(cfg.SnapshotDir, cfg.ArchiveDir, logger)

	p := pipeline.New(source, geocoder, store, logger, metrics, cfg.SeasonYear, cfg.StateCode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx, runID)
	if err != nil {
		logger.Error("pipeline failed, previous snapshot left intact", "run_id", runID, "error", err)
		os.Exit(1)
	}

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL, "site-registry-etl"); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}

	logger.Info("pipeline complete",
		"run_id", summary.RunID,
		"sites", summary.Total,
		"accepted", summary.Accepted,
		"geocoded", summary.Geocoded,
		"credits_spent", summary.GeocodeStats.Requested,
		"coordinates_reused", summary.GeocodeStats.Reused,
	)
}
