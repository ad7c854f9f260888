// Package pipeline orchestrates one reconciliation run: fetch, split,
// normalize, reconcile, geocode, write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/heatrelief/site-registry-etl/internal/domain"
	"github.com/heatrelief/site-registry-etl/internal/observability"
	"github.com/heatrelief/site-registry-etl/internal/reconcile"
	"github.com/heatrelief/site-registry-etl/internal/schema"
)

// Source is the inbound survey system: metadata for the run's decode tables
// and the flat record export. Fetch failures abort the run.
type Source interface {
	FetchMetadata(ctx context.Context) ([]schema.Field, error)
	FetchRecords(ctx context.Context) ([]domain.RawRecord, error)
}

// SnapshotStore seeds the coordinate cache from the previous run and
// persists the new table once it is complete.
type SnapshotStore interface {
	LoadCache() (domain.CoordinateCache, error)
	Write(sites []domain.SiteRecord, catalog domain.ServiceCatalog) error
}

// Pipeline runs the batch reconciliation. Single-threaded: one run owns the
// in-memory table start to finish, and the previous snapshot stays read-only
// until the new one is complete.
type Pipeline struct {
	source   Source
	geocoder domain.Geocoder // nil disables external geocoding
	store    SnapshotStore
	logger   *slog.Logger
	metrics  *observability.Metrics

	seasonYear int
	stateCode  string
}

// New creates a Pipeline with the given collaborators.
func New(source Source, geocoder domain.Geocoder, store SnapshotStore, logger *slog.Logger, metrics *observability.Metrics, seasonYear int, stateCode string) *Pipeline {
	return &Pipeline{
		source:     source,
		geocoder:   geocoder,
		store:      store,
		logger:     logger,
		metrics:    metrics,
		seasonYear: seasonYear,
		stateCode:  stateCode,
	}
}

// RunSummary reports one run's outcome, including every collected
// per-record warning.
type RunSummary struct {
	RunID string

	Total       int
	Accepted    int
	Pending     int
	UnderReview int

	Geocoded           int
	MissingCoordinates int
	GeocodeStats       domain.GeocodeStats

	OverridesApplied int
	OverrideOrphans  int

	Warnings []domain.RecordWarning
	Duration time.Duration
}

// Run executes one complete pipeline pass. It either writes the new
// snapshot or returns an error with nothing written, leaving the previous
// snapshot as last-known-good.
func (p *Pipeline) Run(ctx context.Context, runID string) (*RunSummary, error) {
	start := time.Now()
	logger := p.logger.With("run_id", runID)
	summary := &RunSummary{RunID: runID}

	fields, err := p.source.FetchMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	mappings := schema.Build(fields)
	catalog := domain.BuildServiceCatalog(mappings)

	rows, err := p.source.FetchRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	p.metrics.RecordsFetched.Set(float64(len(rows)))

	cache, err := p.store.LoadCache()
	if err != nil {
		return nil, fmt.Errorf("seed coordinate cache: %w", err)
	}

	base, overrides := reconcile.Split(rows, logger)
	logger.Info("records split", "preseason", len(base), "updates", len(overrides))

	sites := p.normalize(base, mappings, catalog, summary, logger)
	p.metrics.SitesNormalized.Set(float64(len(sites)))

	stats := reconcile.Apply(sites, overrides, catalog, logger)
	summary.OverridesApplied = stats.Applied
	summary.OverrideOrphans = stats.Orphaned
	p.metrics.OverridesApplied.Set(float64(stats.Applied))
	p.metrics.OverrideOrphans.Set(float64(stats.Orphaned))

	geoStats := domain.AssignCoordinates(ctx, sites, cache, p.geocoder, logger)
	summary.GeocodeStats = geoStats
	p.metrics.GeocodeReused.Add(float64(geoStats.Reused))
	p.metrics.GeocodeSkipped.Add(float64(geoStats.Skipped))
	p.metrics.GeocodeRequests.WithLabelValues("success").Add(float64(geoStats.Found))
	p.metrics.GeocodeRequests.WithLabelValues("error").Add(float64(geoStats.Failed))
	logger.Info("geocoding complete",
		"reused", geoStats.Reused,
		"requested", geoStats.Requested,
		"failed", geoStats.Failed,
		"skipped", geoStats.Skipped,
	)

	p.tally(sites, summary)
	p.metrics.SitesAccepted.Set(float64(summary.Accepted))
	p.metrics.ValidationWarnings.Set(float64(len(summary.Warnings)))

	if err := p.store.Write(sites, catalog); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	summary.Duration = time.Since(start)
	p.metrics.RunDuration.Set(summary.Duration.Seconds())
	p.metrics.LastSuccess.SetToCurrentTime()

	for _, w := range summary.Warnings {
		logger.Warn("record warning", "record_id", w.RecordID, "field", w.Field, "message", w.Message)
	}
	logger.Info("run complete",
		"sites", summary.Total,
		"accepted", summary.Accepted,
		"geocoded", summary.Geocoded,
		"overrides_applied", summary.OverridesApplied,
		"warnings", len(summary.Warnings),
		"duration", summary.Duration,
	)
	return summary, nil
}

// normalize builds the canonical table from base rows, sorted by record
// identity for deterministic output. Row-level problems are collected, never
// batch-fatal.
func (p *Pipeline) normalize(base []domain.RawRecord, mappings *schema.Mappings, catalog domain.ServiceCatalog, summary *RunSummary, logger *slog.Logger) []domain.SiteRecord {
	opts := domain.NormalizeOptions{
		SeasonYear: p.seasonYear,
		StateCode:  p.stateCode,
	}

	sites := make([]domain.SiteRecord, 0, len(base))
	for _, row := range base {
		site, warnings, err := domain.NormalizeSite(row, mappings, catalog, opts)
		if err != nil {
			logger.Warn("unattributable base row, dropping", "error", err)
			continue
		}
		summary.Warnings = append(summary.Warnings, warnings...)
		sites = append(sites, site)
	}

	sort.Slice(sites, func(i, j int) bool {
		return sites[i].RecordID < sites[j].RecordID
	})
	return sites
}

func (p *Pipeline) tally(sites []domain.SiteRecord, summary *RunSummary) {
	summary.Total = len(sites)
	for _, site := range sites {
		switch site.ReviewStatus {
		case domain.StatusAccepted:
			summary.Accepted++
		case domain.StatusUnderReview:
			summary.UnderReview++
		default:
			summary.Pending++
		}
		if site.Geocoded {
			summary.Geocoded++
		}
	}
	summary.MissingCoordinates = summary.Total - summary.Geocoded
}
