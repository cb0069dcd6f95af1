// Package metrics holds the Prometheus collectors for trigger dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TriggerFirings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trigger_firings_total",
			Help: "Total number of trigger firings, by whether an active trigger was found",
		},
		[]string{"trigger_key", "found"},
	)

	ActionDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_dispatch_total",
			Help: "Total number of action executions by outcome",
		},
		[]string{"action_type", "status"},
	)

	ActionDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "action_dispatch_duration_seconds",
			Help:    "Duration of a single executor call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action_type"},
	)

	ActionSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_skips_total",
			Help: "Bindings skipped before execution, by gate",
		},
		[]string{"action_type", "reason"},
	)

	ActivityWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_write_failures_total",
			Help: "Activity rows that could not be persisted",
		},
	)

	ActivityMirrorFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_mirror_failures_total",
			Help: "Activity rows that could not be copied to Elasticsearch",
		},
	)

	ActionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_retries_total",
			Help: "Retry attempts of failed activity rows by outcome",
		},
		[]string{"action_type", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Jobs currently being handled by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
