package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the plugin subsystem.
type Metrics struct {
	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	PluginErrorsTotal  *prometheus.CounterVec

	// Health metrics
	HealthScore         *prometheus.GaugeVec
	HealthSweepsTotal   prometheus.Counter
	HealthSweepDuration prometheus.Histogram

	// Alert metrics
	AlertsCreatedTotal  *prometheus.CounterVec
	AlertsResolvedTotal prometheus.Counter
	AlertsActive        prometheus.Gauge

	// Catalog metrics
	CatalogPlugins       prometheus.Gauge
	CatalogLocalPlugins  prometheus.Gauge
	RegistryRefreshTotal *prometheus.CounterVec
	RemoteFetchTotal     *prometheus.CounterVec
	SearchesTotal        prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginkit_invocations_total",
				Help: "Total number of plugin invocations",
			},
			[]string{"result"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginkit_invocation_duration_seconds",
				Help:    "Plugin invocation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		PluginErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginkit_plugin_errors_total",
				Help: "Total number of plugin errors reported by the execution bridge",
			},
			[]string{"severity"},
		),

		HealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pluginkit_health_score",
				Help: "Most recent health score per plugin installation (0-100)",
			},
			[]string{"installation_id"},
		),
		HealthSweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pluginkit_health_sweeps_total",
				Help: "Total number of completed health sweeps",
			},
		),
		HealthSweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pluginkit_health_sweep_duration_seconds",
				Help:    "Health sweep duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		AlertsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginkit_alerts_created_total",
				Help: "Total number of alerts created",
			},
			[]string{"type", "severity"},
		),
		AlertsResolvedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pluginkit_alerts_resolved_total",
				Help: "Total number of alerts resolved",
			},
		),
		AlertsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pluginkit_alerts_active",
				Help: "Number of currently unresolved alerts",
			},
		),

		CatalogPlugins: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pluginkit_catalog_plugins",
				Help: "Number of plugins in the merged catalog",
			},
		),
		CatalogLocalPlugins: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pluginkit_catalog_local_plugins",
				Help: "Number of locally discovered plugins",
			},
		),
		RegistryRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginkit_registry_refresh_total",
				Help: "Total number of registry refreshes",
			},
			[]string{"result"},
		),
		RemoteFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginkit_remote_fetch_total",
				Help: "Total number of remote registry fetches",
			},
			[]string{"source", "result"},
		),
		SearchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pluginkit_searches_total",
				Help: "Total number of catalog searches",
			},
		),
	}

	registry.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.PluginErrorsTotal,
		m.HealthScore,
		m.HealthSweepsTotal,
		m.HealthSweepDuration,
		m.AlertsCreatedTotal,
		m.AlertsResolvedTotal,
		m.AlertsActive,
		m.CatalogPlugins,
		m.CatalogLocalPlugins,
		m.RegistryRefreshTotal,
		m.RemoteFetchTotal,
		m.SearchesTotal,
	)

	return m
}
