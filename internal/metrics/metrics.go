// Package metrics defines the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulerTicksTotal counts control-loop iterations.
	SchedulerTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Total number of scheduler control loop ticks.",
		},
	)

	// JobsDueTotal counts schedule matches per job.
	JobsDueTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_due_total",
			Help: "Total number of times a job's schedule matched a tick.",
		},
		[]string{"job_name"},
	)

	// LockDeniedTotal counts skipped executions due to lock contention.
	// A steadily increasing value is normal with redundant replicas.
	LockDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_denied_total",
			Help: "Total number of due jobs skipped because the advisory lock was held elsewhere.",
		},
		[]string{"job_name"},
	)

	// JobExecutionsTotal counts finished executions by terminal status.
	JobExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_executions_total",
			Help: "Total number of job executions.",
		},
		[]string{"job_name", "status"},
	)

	// JobExecutionDuration observes wall-clock execution time per job.
	JobExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_execution_duration_seconds",
			Help:    "Wall-clock duration of job executions.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"job_name"},
	)

	// StorageErrorsTotal counts failed storage round-trips by operation
	// (lock, unlock, history).
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_errors_total",
			Help: "Total number of storage errors encountered by the scheduler.",
		},
		[]string{"operation"},
	)
)
