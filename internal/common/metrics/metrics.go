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

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_searches_total",
			Help: "Hybrid searches by resulting source classification",
		},
		[]string{"source"},
	)

	SearchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_search_failures_total",
			Help: "Hybrid searches that failed, by failing stage",
		},
		[]string{"stage"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_cache_lookups_total",
			Help: "External result cache lookups by outcome",
		},
		[]string{"outcome"}, // hit | miss | error
	)

	CacheEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "directory_cache_evicted_total",
			Help: "Expired external cache rows deleted",
		},
	)

	ExternalProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_external_provider_calls_total",
			Help: "Calls to the external places provider by outcome",
		},
		[]string{"provider", "outcome"},
	)

	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_intents_total",
			Help: "Classified intents by type and whether the default was used",
		},
		[]string{"intent", "fallback"},
	)

	CompletionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_completion_tokens_total",
			Help: "Tokens reported by the completion endpoint",
		},
		[]string{"purpose", "kind"}, // kind: prompt | completion
	)

	MessagesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_messages_routed_total",
			Help: "Routed inbound messages by handler",
		},
		[]string{"handler"},
	)

	LeadsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_leads_total",
			Help: "Lead-capture outcomes",
		},
		[]string{"outcome"},
	)

	FollowUpFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_lead_followup_failures_total",
			Help: "Failed lead follow-up steps",
		},
		[]string{"step"},
	)
)
