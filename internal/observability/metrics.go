package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus instruments for one pipeline run. The batch
// job has no listener to scrape, so instruments register on a private
// registry and are pushed to a Pushgateway when the run completes. The
// private registry also keeps tests free of duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	RecordsFetched  prometheus.Gauge
	SitesNormalized prometheus.Gauge
	SitesAccepted   prometheus.Gauge

	OverridesApplied prometheus.Gauge
	OverrideOrphans  prometheus.Gauge

	ValidationWarnings prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,empty,error}
	GeocodeReused   prometheus.Counter
	GeocodeSkipped  prometheus.Counter

	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RecordsFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "records_fetched",
			Help:      "Raw rows returned by the survey system this run.",
		}),
		SitesNormalized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "sites_normalized",
			Help:      "Canonical site records built this run.",
		}),
		SitesAccepted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "sites_accepted",
			Help:      "Sites with review status Accepted this run.",
		}),
		OverridesApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "overrides_applied",
			Help:      "Sites changed by an in-season update this run.",
		}),
		OverrideOrphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "override_orphans",
			Help:      "Update rows with no matching base record this run.",
		}),
		ValidationWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "validation_warnings",
			Help:      "Per-record validation warnings collected this run.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site_registry",
			Name:      "geocode_requests_total",
			Help:      "External geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeReused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_registry",
			Name:      "geocode_cache_reused_total",
			Help:      "Coordinates reused from the previous snapshot.",
		}),
		GeocodeSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_registry",
			Name:      "geocode_skipped_total",
			Help:      "Sites skipped because they are not yet accepted.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_registry",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.RecordsFetched,
		m.SitesNormalized,
		m.SitesAccepted,
		m.OverridesApplied,
		m.OverrideOrphans,
		m.ValidationWarnings,
		m.GeocodeRequests,
		m.GeocodeReused,
		m.GeocodeSkipped,
		m.RunDuration,
		m.LastSuccess,
	)

	return m
}

// Push sends the run's metrics to a Pushgateway. job groups successive runs
// of the same pipeline.
func (m *Metrics) Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.registry).Push()
}
