// Command publish re-synchronizes the ArcGIS feature layer from the written
// snapshot. It runs after the etl command; a publish failure never touches
// the snapshot, which stays the authoritative output.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/heatrelief/site-registry-etl/internal/adapter/arcgis"
	"github.com/heatrelief/site-registry-etl/internal/adapter/snapshot"
	"github.com/heatrelief/site-registry-etl/internal/config"
	"github.com/heatrelief/site-registry-etl/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	if cfg.ArcGIS.Username == "" {
		logger.Info("arcgis not configured, skipping publish")
		return
	}

	store := snapshot.NewStore(cfg.SnapshotDir, cfg.ArchiveDir, logger)
	rows, err := store.ReadSnapshot()
	if err != nil {
		logger.Error("cannot read snapshot", "error", err)
		os.Exit(1)
	}

	publishable := arcgis.FilterPublishable(rows)
	logger.Info("snapshot filtered for publication",
		"total", len(rows), "publishable", len(publishable))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := arcgis.NewClient(cfg.ArcGIS, logger)
	if err := client.Publish(ctx, publishable); err != nil {
		logger.Error("publish failed, snapshot remains authoritative", "error", err)
		os.Exit(1)
	}

	logger.Info("publish complete", "features", len(publishable))
}
