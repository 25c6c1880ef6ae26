// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apimon"

var (
	// HTTPRequestDuration tracks HTTP request latency on the core's own
	// ops surface (/healthz, /readyz, /version).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// ProbeDuration tracks probe latency by the resulting classification.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Probe duration in seconds by result kind",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// ProbeResultsTotal counts probes by result kind.
	ProbeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "probe",
			Name:      "results_total",
			Help:      "Total probes performed, by result kind",
		},
		[]string{"kind"},
	)

	// SchedulerActiveChecks is the current in-flight probe count, replacing
	// a polled getActiveCheckCount-style accessor with a gauge.
	SchedulerActiveChecks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "active_checks",
			Help:      "Number of probes currently in flight",
		},
	)

	// SchedulerTicksSkippedTotal counts endpoints still in flight when the
	// next tick tried to admit them again, plus due endpoints deferred to a
	// later tick because the concurrency budget was exhausted.
	SchedulerTicksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_skipped_total",
			Help:      "Endpoint admissions skipped because a check was still in flight or the concurrency budget was exhausted",
		},
	)

	// SchedulerEndpointsRejectedTotal counts due endpoints the scheduler
	// refused to admit because their stored interval or timeout fell
	// outside the bounds the core enforces regardless of what the
	// configuration provider wrote.
	SchedulerEndpointsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "endpoints_rejected_total",
			Help:      "Due endpoints rejected for interval/timeout out of bounds, by reason",
		},
		[]string{"reason"},
	)

	// AlertsDeliveredTotal counts alert delivery outcomes by channel and
	// success/failure.
	AlertsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "delivered_total",
			Help:      "Total alert delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// RetentionRowsDeletedTotal counts rows purged by the retention sweeper.
	RetentionRowsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "rows_deleted_total",
			Help:      "Total rows deleted by the retention sweeper, by table",
		},
		[]string{"table"},
	)
)

// RecordProbe records a completed probe's duration and result kind.
func RecordProbe(kind string, duration time.Duration) {
	ProbeDuration.WithLabelValues(kind).Observe(duration.Seconds())
	ProbeResultsTotal.WithLabelValues(kind).Inc()
}

// RecordAlertDelivery records an alert delivery outcome.
func RecordAlertDelivery(channel, outcome string) {
	AlertsDeliveredTotal.WithLabelValues(channel, outcome).Inc()
}
