// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker job metrics
var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Engine metrics
var (
	ConflictChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_conflict_checks_total",
			Help: "Conflict checks by outcome (conflict, free, error)",
		},
		[]string{"result"},
	)

	CandidateLookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_candidate_lookup_failures_total",
			Help: "Per-musician collaborator failures isolated during batch operations",
		},
		[]string{"operation"},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_candidates_scored_total",
			Help: "Musicians that passed the availability gate and were scored",
		},
	)

	RateCalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rate_calculations_total",
			Help: "Rate calculations, labelled with the first fallback warning or none",
		},
		[]string{"warning"},
	)
)
