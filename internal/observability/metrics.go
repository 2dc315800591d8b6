// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Replay metrics
	EventsReplayed    prometheus.Counter
	WindowsExtracted  *prometheus.CounterVec
	ScenariosInjected *prometheus.CounterVec
	ReplayDivergences prometheus.Counter

	// Diagnostic metrics
	DiagnosticsComputed *prometheus.CounterVec
	HistogramFallbacks  prometheus.Counter
	LastDriftScore      prometheus.Gauge
	DiagnosticDuration  prometheus.Histogram
	BootstrapDuration   prometheus.Histogram

	// Calibration metrics
	CalibrationRuns    prometheus.Counter
	CalibrationSamples prometheus.Counter

	// Integrity metrics
	VerificationsTotal *prometheus.CounterVec
	WatchTriggers      prometheus.Counter

	// Feed metrics
	FeedEventsReceived prometheus.Counter
	FeedReconnects     prometheus.Counter
	StreamClients      prometheus.Gauge

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal   *prometheus.CounterVec
	PipelineDuration    *prometheus.HistogramVec
	SufficiencyFailures *prometheus.CounterVec
	ReportsGenerated    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulVerification prometheus.Gauge
	LastSuccessfulDiagnostic   prometheus.Gauge
	UptimeSeconds              prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "driftlab"
	}

	return &Metrics{
		// Replay metrics
		EventsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "events_replayed_total",
			Help:      "Total number of events emitted by the replay engine",
		}),
		WindowsExtracted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "windows_extracted_total",
			Help:      "Total number of windows extracted by label",
		}, []string{"label"}),
		ScenariosInjected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "scenarios_injected_total",
			Help:      "Total number of scenario injections by scenario",
		}, []string{"scenario"}),
		ReplayDivergences: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "divergences_total",
			Help:      "Total number of determinism check divergences",
		}),

		// Diagnostic metrics
		DiagnosticsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnostic",
			Name:      "computed_total",
			Help:      "Total number of drift diagnostics computed by estimation method",
		}, []string{"method"}),
		HistogramFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnostic",
			Name:      "histogram_fallbacks_total",
			Help:      "Total number of KDE computations that fell back to histograms",
		}),
		LastDriftScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "diagnostic",
			Name:      "last_score",
			Help:      "Most recently computed drift score",
		}),
		DiagnosticDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "diagnostic",
			Name:      "duration_seconds",
			Help:      "Drift diagnostic computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		BootstrapDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "diagnostic",
			Name:      "bootstrap_duration_seconds",
			Help:      "Bootstrap calibration duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		// Calibration metrics
		CalibrationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "runs_total",
			Help:      "Total number of calibration runs",
		}),
		CalibrationSamples: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calibration",
			Name:      "samples_total",
			Help:      "Total number of null-distribution samples computed",
		}),

		// Integrity metrics
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "verifications_total",
			Help:      "Total number of manifest verifications by outcome",
		}, []string{"outcome"}),
		WatchTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "integrity",
			Name:      "watch_triggers_total",
			Help:      "Total number of re-verifications triggered by the dataset watcher",
		}),

		// Feed metrics
		FeedEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_received_total",
			Help:      "Total number of events received from the live feed",
		}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of feed reconnect attempts",
		}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "stream_clients",
			Help:      "Current number of connected stream clients",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by entry kind",
		}, []string{"entry"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by entry kind",
		}, []string{"entry"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		SufficiencyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sufficiency_failures_total",
			Help:      "Total number of failed sufficiency checks by check name",
		}, []string{"check"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulVerification: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_verification_timestamp",
			Help:      "Unix timestamp of last successful manifest verification",
		}),
		LastSuccessfulDiagnostic: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_diagnostic_timestamp",
			Help:      "Unix timestamp of last successful diagnostic run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventsReplayed adds to the replayed events counter.
func RecordEventsReplayed(n int) {
	DefaultMetrics.EventsReplayed.Add(float64(n))
}

// RecordWindowExtracted increments the window counter for a label.
func RecordWindowExtracted(label string) {
	DefaultMetrics.WindowsExtracted.WithLabelValues(label).Inc()
}

// RecordScenarioInjected increments the scenario injection counter.
func RecordScenarioInjected(scenario string) {
	DefaultMetrics.ScenariosInjected.WithLabelValues(scenario).Inc()
}

// RecordReplayDivergence increments the determinism divergence counter.
func RecordReplayDivergence() {
	DefaultMetrics.ReplayDivergences.Inc()
}

// RecordDiagnostic records one computed diagnostic.
func RecordDiagnostic(method string, score, seconds float64) {
	DefaultMetrics.DiagnosticsComputed.WithLabelValues(method).Inc()
	DefaultMetrics.LastDriftScore.Set(score)
	DefaultMetrics.DiagnosticDuration.Observe(seconds)
	DefaultMetrics.LastSuccessfulDiagnostic.Set(float64(time.Now().Unix()))
}

// RecordHistogramFallback increments the KDE fallback counter.
func RecordHistogramFallback() {
	DefaultMetrics.HistogramFallbacks.Inc()
}

// RecordCalibrationRun records a calibration run and its sample count.
func RecordCalibrationRun(samples int) {
	DefaultMetrics.CalibrationRuns.Inc()
	DefaultMetrics.CalibrationSamples.Add(float64(samples))
}

// RecordVerification records a manifest verification outcome.
func RecordVerification(valid bool, err error) {
	outcome := "valid"
	switch {
	case err != nil:
		outcome = "error"
	case !valid:
		outcome = "tampered"
	}
	DefaultMetrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "valid" {
		DefaultMetrics.LastSuccessfulVerification.Set(float64(time.Now().Unix()))
	}
}

// RecordWatchTrigger increments the watcher trigger counter.
func RecordWatchTrigger() {
	DefaultMetrics.WatchTriggers.Inc()
}

// RecordFeedEvent increments the feed events counter.
func RecordFeedEvent() {
	DefaultMetrics.FeedEventsReceived.Inc()
}

// RecordFeedReconnect increments the feed reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// SetStreamClients updates the connected stream clients gauge.
func SetStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordCacheHit increments the hit counter for an entry kind.
func RecordCacheHit(entry string) {
	DefaultMetrics.CacheHits.WithLabelValues(entry).Inc()
}

// RecordCacheMiss increments the miss counter for an entry kind.
func RecordCacheMiss(entry string) {
	DefaultMetrics.CacheMisses.WithLabelValues(entry).Inc()
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordSufficiencyFailure increments the failure counter for a check.
func RecordSufficiencyFailure(check string) {
	DefaultMetrics.SufficiencyFailures.WithLabelValues(check).Inc()
}

// RecordReportGenerated increments the reports counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
