package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collate_job_runs_total",
			Help: "Total number of background job runs by kind and status.",
		},
		[]string{"kind", "status"},
	)

	JobRunDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collate_job_run_duration_seconds",
			Help:    "Duration of background job runs in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind", "status"},
	)

	RowsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collate_rows_processed_total",
			Help: "Total number of imported sheet rows by change applied.",
		},
		[]string{"change"},
	)

	JobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collate_jobs_active",
			Help: "Number of currently running background jobs.",
		},
		[]string{"kind"},
	)

	JobsSweptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collate_jobs_swept_total",
			Help: "Total number of timed-out pending jobs failed by the sweeper.",
		},
		[]string{"kind"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collate_notifications_total",
			Help: "Total number of job notifications by result.",
		},
		[]string{"result"},
	)
)

// Register registers all custom collate metrics with the default Prometheus registry.
func Register() {
	prometheus.MustRegister(
		JobRunsTotal,
		JobRunDurationSeconds,
		RowsProcessedTotal,
		JobsActive,
		JobsSweptTotal,
		NotificationsTotal,
	)
}
