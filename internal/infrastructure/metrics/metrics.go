package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mcpchat",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Relay stream counters, by provider and outcome
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "relay",
			Name:      "requests_total",
			Help:      "Total relay requests by provider, mode and outcome",
		},
		[]string{"provider", "mode", "outcome"},
	)

	// Conversation turns by terminal status
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total conversation turns by terminal status",
		},
		[]string{"provider", "status"},
	)

	// Stream events folded into conversation state
	FoldedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "chat",
			Name:      "folded_events_total",
			Help:      "Total normalized stream events folded by type",
		},
		[]string{"type"},
	)

	// Approval decisions
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "chat",
			Name:      "approval_decisions_total",
			Help:      "Total tool approval decisions",
		},
		[]string{"decision"},
	)

	// Server validation outcomes
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpchat",
			Subsystem: "registry",
			Name:      "server_validations_total",
			Help:      "Total MCP server validation attempts by outcome",
		},
		[]string{"outcome"},
	)
)
