package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_messages_processed_total",
			Help: "Messages handled by a pipeline stage, by outcome",
		},
		[]string{"task_type", "outcome"},
	)

	StageMessagesDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stage_messages_dead_lettered_total",
			Help: "Messages routed to the dead-letter channel",
		},
		[]string{"task_type", "error_code"},
	)

	DeadLetterPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letter_publish_failures_total",
			Help: "Dead-letter publishes that failed and were dropped",
		},
		[]string{"task_type"},
	)

	StageMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stage_message_duration_seconds",
			Help:    "Time from fetch to offset commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	StageInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stage_messages_in_flight",
			Help: "Messages currently being processed per stage",
		},
		[]string{"task_type"},
	)

	// 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state",
		},
		[]string{"name"},
	)

	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Application submissions at the API boundary, by outcome",
		},
		[]string{"outcome"},
	)

	DecisionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decisions_recorded_total",
			Help: "Terminal statuses written by the decision stage",
		},
		[]string{"status"},
	)
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served by the API boundary",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
