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
	// Intake metrics
	DraftsFetched   prometheus.Counter
	MalformedInputs *prometheus.CounterVec
	DuplicateDrafts prometheus.Counter

	// Review metrics
	ReviewsTotal      *prometheus.CounterVec
	CriterionOutcomes *prometheus.CounterVec
	DraftsDowngraded  prometheus.Counter
	ConfidenceScores  prometheus.Histogram
	IterationsPerRun  prometheus.Histogram

	// Export metrics
	ExportEligible prometheus.Counter

	// Run metrics
	GateRunsTotal   *prometheus.CounterVec
	GateRunDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "draft_gate"
	}

	return &Metrics{
		// Intake metrics
		DraftsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "drafts_fetched_total",
			Help:      "Total number of well-formed drafts fetched",
		}),
		MalformedInputs: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "malformed_inputs_total",
			Help:      "Total number of malformed draft documents by source kind",
		}, []string{"source"}),
		DuplicateDrafts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "duplicate_drafts_total",
			Help:      "Total number of drafts discarded as duplicate IDs",
		}),

		// Review metrics
		ReviewsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "reviews_total",
			Help:      "Total number of terminal reviews by verdict",
		}, []string{"verdict"}),
		CriterionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "criterion_outcomes_total",
			Help:      "Total number of criterion findings by criterion and severity",
		}, []string{"criterion", "severity"}),
		DraftsDowngraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "drafts_downgraded_total",
			Help:      "Total number of drafts downgraded to research_probe after exhausting revisions",
		}),
		ConfidenceScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "confidence_score",
			Help:      "Confidence scores of terminal reviews",
			Buckets:   []float64{10, 20, 30, 35, 40, 50, 60, 70, 80, 90, 100},
		}),
		IterationsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "iterations_per_run",
			Help:      "Number of review iterations executed per run",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),

		// Export metrics
		ExportEligible: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "eligible_total",
			Help:      "Total number of drafts marked export eligible",
		}),

		// Run metrics
		GateRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "runs_total",
			Help:      "Total number of gate runs by status",
		}, []string{"status"}),
		GateRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "run_duration_seconds",
			Help:      "Gate run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
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

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful gate run",
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

// RecordDraftsFetched adds to the fetched drafts counter.
func RecordDraftsFetched(n int) {
	DefaultMetrics.DraftsFetched.Add(float64(n))
}

// RecordMalformedInput records one malformed draft document.
func RecordMalformedInput(source string) {
	DefaultMetrics.MalformedInputs.WithLabelValues(source).Inc()
}

// RecordDuplicateDraft records one discarded duplicate draft ID.
func RecordDuplicateDraft() {
	DefaultMetrics.DuplicateDrafts.Inc()
}

// RecordReview records one terminal review.
func RecordReview(verdict string, confidence int, downgraded, exportEligible bool) {
	DefaultMetrics.ReviewsTotal.WithLabelValues(verdict).Inc()
	DefaultMetrics.ConfidenceScores.Observe(float64(confidence))
	if downgraded {
		DefaultMetrics.DraftsDowngraded.Inc()
	}
	if exportEligible {
		DefaultMetrics.ExportEligible.Inc()
	}
}

// RecordCriterionOutcome records one criterion finding.
func RecordCriterionOutcome(criterion, severity string) {
	DefaultMetrics.CriterionOutcomes.WithLabelValues(criterion, severity).Inc()
}

// RecordGateRun records a completed gate run.
func RecordGateRun(status string, iterations int, durationSeconds float64) {
	DefaultMetrics.GateRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.GateRunDuration.Observe(durationSeconds)
	DefaultMetrics.IterationsPerRun.Observe(float64(iterations))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetLastSuccessfulRun records the completion time of the last clean run.
func SetLastSuccessfulRun(t time.Time) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(t.Unix()))
}

// AddUptime adds elapsed seconds to the uptime counter.
func AddUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}
