// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Detection metrics
	DetectionCycles  *prometheus.CounterVec
	LaunchesDetected prometheus.Counter
	FeedTokensSeen   prometheus.Gauge
	FirstSeenTracked prometheus.Gauge

	// Monitoring metrics
	TrackedLaunches    prometheus.Gauge
	SnapshotsTaken     prometheus.Counter
	LaunchesClassified *prometheus.CounterVec
	WindowFinalGain    prometheus.Histogram

	// Gate metrics
	GateEvaluations *prometheus.CounterVec

	// Execution metrics
	ExecutionCycles  *prometheus.CounterVec
	CandidatesJudged *prometheus.CounterVec
	TradesExecuted   prometheus.Counter
	TradeSizeUSD     prometheus.Histogram

	// Feed metrics
	FeedRequests    *prometheus.CounterVec
	FeedLatency     prometheus.Histogram
	FeedCacheHits   prometheus.Counter
	FeedCacheMisses prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	MarketHealthScore    prometheus.Gauge
	LastSuccessfulCycle  *prometheus.GaugeVec
	NotificationsDropped prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchlab"
	}

	return &Metrics{
		// Detection metrics
		DetectionCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "cycles_total",
			Help:      "Total number of detection cycles by status",
		}, []string{"status"}),
		LaunchesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "launches_detected_total",
			Help:      "Total number of launch records created",
		}),
		FeedTokensSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "feed_tokens",
			Help:      "Number of tokens in the last feed poll",
		}),
		FirstSeenTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "first_seen_tracked",
			Help:      "Current size of the first-seen bookkeeping map",
		}),

		// Monitoring metrics
		TrackedLaunches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tracked_launches",
			Help:      "Current number of launches under observation",
		}),
		SnapshotsTaken: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "snapshots_taken_total",
			Help:      "Total number of price snapshots appended",
		}),
		LaunchesClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "launches_classified_total",
			Help:      "Total number of launches classified by outcome",
		}, []string{"outcome"}),
		WindowFinalGain: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "window_final_gain",
			Help:      "Fractional gain at the end of the observation window",
			Buckets:   []float64{-0.9, -0.5, -0.25, 0, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Gate metrics
		GateEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "evaluations_total",
			Help:      "Total number of gate evaluations by verdict",
		}, []string{"verdict"}),

		// Execution metrics
		ExecutionCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "cycles_total",
			Help:      "Total number of execution cycles by status",
		}, []string{"status"}),
		CandidatesJudged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "candidates_judged_total",
			Help:      "Total number of candidates judged by filter result",
		}, []string{"result"}),
		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trades_executed_total",
			Help:      "Total number of launch entry trades written",
		}),
		TradeSizeUSD: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "trade_size_usd",
			Help:      "Position size per trade in USD",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000},
		}),

		// Feed metrics
		FeedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "requests_total",
			Help:      "Total number of live feed requests by status",
		}, []string{"status"}),
		FeedLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_latency_seconds",
			Help:      "Live feed request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FeedCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "cache_hits_total",
			Help:      "Total number of feed responses served from cache",
		}),
		FeedCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "cache_misses_total",
			Help:      "Total number of feed cache misses",
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
		MarketHealthScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "market_score",
			Help:      "Last computed market health score (0-100)",
		}),
		LastSuccessfulCycle: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle per component",
		}, []string{"component"}),
		NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications dropped by full buffers",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDetectionCycle records one detection cycle.
func RecordDetectionCycle(status string, feedTokens, detected int) {
	DefaultMetrics.DetectionCycles.WithLabelValues(status).Inc()
	DefaultMetrics.FeedTokensSeen.Set(float64(feedTokens))
	DefaultMetrics.LaunchesDetected.Add(float64(detected))
}

// RecordClassification records one window classification.
func RecordClassification(outcome string, finalGain float64) {
	DefaultMetrics.LaunchesClassified.WithLabelValues(outcome).Inc()
	DefaultMetrics.WindowFinalGain.Observe(finalGain)
}

// RecordGateEvaluation records one gate verdict.
func RecordGateEvaluation(ready bool) {
	verdict := "closed"
	if ready {
		verdict = "ready"
	}
	DefaultMetrics.GateEvaluations.WithLabelValues(verdict).Inc()
}

// RecordTrade records one executed launch entry.
func RecordTrade(sizeUSD float64) {
	DefaultMetrics.TradesExecuted.Inc()
	DefaultMetrics.TradeSizeUSD.Observe(sizeUSD)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
