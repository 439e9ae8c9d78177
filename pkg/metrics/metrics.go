// Package metrics exposes the engine's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_events_ingested_total",
		Help: "Total number of game events ingested, labelled by event type.",
	}, []string{"event_type"})

	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_events_rejected_total",
		Help: "Total number of ingested events rejected during normalization.",
	})

	TriggersMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_triggers_matched_total",
		Help: "Total number of trigger matches, labelled by event type.",
	}, []string{"event_type"})

	ExecutionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_executions_finished_total",
		Help: "Total number of executions reaching a terminal state, labelled by status.",
	}, []string{"status"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_actions_executed_total",
		Help: "Total number of action dispatches, labelled by type and status.",
	}, []string{"action_type", "status"})

	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_execution_duration_ms",
		Help:    "End-to-end workflow execution latency in milliseconds.",
		Buckets: []float64{5, 25, 100, 250, 500, 1000, 5000, 15000, 60000, 300000},
	})
)
