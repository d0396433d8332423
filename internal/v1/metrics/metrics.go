package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the chat client synchronization core.
//
// Naming convention: namespace_subsystem_name
// - namespace: chat_client
// - subsystem: connection, router, commands, state, mirror, status
//
// Metric Types:
// - Gauge: Current state (connection status, subscribers)
// - Counter: Cumulative events (events dispatched, commands emitted)
// - Histogram: Latency distributions (reducer time)

var (
	// ConnectionStatus is 1 for the current status label and 0 for the others.
	ConnectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chat_client",
		Subsystem: "connection",
		Name:      "status",
		Help:      "Current connection status (1 = active label)",
	}, []string{"status"})

	// ConnectionTransitions counts every published status transition.
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "connection",
		Name:      "transitions_total",
		Help:      "Total connection status transitions",
	}, []string{"status"})

	// DialFailures counts failed session dials, including breaker rejections.
	DialFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "connection",
		Name:      "dial_failures_total",
		Help:      "Total failed attempts to establish the session",
	})

	// Reconnects counts explicit reconnect requests.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "connection",
		Name:      "reconnects_total",
		Help:      "Total explicit reconnects (durable slices reset)",
	})

	// InboundEvents counts dispatched inbound events by outcome (ok, ignored, malformed, stale).
	InboundEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "router",
		Name:      "events_total",
		Help:      "Total inbound events processed",
	}, []string{"event", "status"})

	// SnapshotEntriesDropped counts invalid elements skipped while applying a list snapshot.
	SnapshotEntriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "router",
		Name:      "snapshot_entries_dropped_total",
		Help:      "Total invalid list entries dropped from inbound snapshots",
	}, []string{"event"})

	// DispatchDuration tracks the time spent decoding and reducing an inbound event.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat_client",
		Subsystem: "router",
		Name:      "dispatch_seconds",
		Help:      "Time spent decoding and reducing inbound events",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	}, []string{"event"})

	// OutboundCommands counts emitted commands by outcome (sent, not_connected, error).
	OutboundCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "commands",
		Name:      "emitted_total",
		Help:      "Total outbound commands",
	}, []string{"command", "status"})

	// SliceSubscribers tracks active subscribers per state slice.
	SliceSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chat_client",
		Subsystem: "state",
		Name:      "subscribers",
		Help:      "Current number of subscribers per slice",
	}, []string{"slice"})

	// SubscriberPanics counts recovered panics raised by subscriber callbacks.
	SubscriberPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "state",
		Name:      "subscriber_panics_total",
		Help:      "Total panics recovered from subscriber callbacks",
	}, []string{"slice"})

	// MirrorPublishes counts Redis mirror publishes by outcome (success, error, dropped).
	MirrorPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "mirror",
		Name:      "publishes_total",
		Help:      "Total inbound events mirrored to Redis",
	}, []string{"status"})

	// CircuitBreakerState tracks the state of circuit breakers (0=Closed, 1=Open, 2=Half-Open)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chat_client",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0=Closed, 1=Open, 2=Half-Open)",
	}, []string{"name"})

	// CircuitBreakerFailures tracks calls rejected by an open breaker
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total calls rejected by an open circuit breaker",
	}, []string{"name"})

	// RateLimitRequests tracks allowed status-server requests
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "status",
		Name:      "requests_allowed_total",
		Help:      "Total status server requests allowed by the rate limiter",
	}, []string{"path"})

	// RateLimitExceeded tracks rejected status-server requests
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_client",
		Subsystem: "status",
		Name:      "requests_limited_total",
		Help:      "Total status server requests rejected by the rate limiter",
	}, []string{"path"})
)

var statuses = []string{"connecting", "connected", "disconnected"}

// SetConnectionStatus flips the status gauge to the given label and counts the transition.
func SetConnectionStatus(status string) {
	for _, s := range statuses {
		if s == status {
			ConnectionStatus.WithLabelValues(s).Set(1)
		} else {
			ConnectionStatus.WithLabelValues(s).Set(0)
		}
	}
	ConnectionTransitions.WithLabelValues(status).Inc()
}

// BreakerStateValue maps a breaker state name to the gauge encoding.
func BreakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 1
	case "half-open":
		return 2
	default:
		return 0
	}
}
