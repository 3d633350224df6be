// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

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

	EvaluationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_completed_total",
			Help: "Total number of evaluations finalized, by recommendation",
		},
		[]string{"recommendation"},
	)

	ConsensusProposals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consensus_proposals_total",
			Help: "Total number of consensus proposals, by escalation outcome",
		},
		[]string{"escalated"},
	)

	BiasReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bias_reports_generated_total",
			Help: "Total number of bias reports generated, by overall risk",
		},
		[]string{"overall_risk"},
	)

	AuditEventsProjected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_projected_total",
			Help: "Total number of audit events synthesized into trails",
		},
	)
)
