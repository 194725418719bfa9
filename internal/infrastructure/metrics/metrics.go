package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connectify",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "connectify",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Messages appended to conversations
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connectify",
			Subsystem: "server",
			Name:      "messages_total",
			Help:      "Total chat messages appended",
		},
		[]string{"kind"},
	)

	// Live websocket connections
	SocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "connectify",
			Subsystem: "server",
			Name:      "socket_connections",
			Help:      "Currently open websocket connections",
		},
	)

	// Realtime event fan-out outcomes
	EventsPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "connectify",
			Subsystem: "server",
			Name:      "events_pushed_total",
			Help:      "Realtime events pushed to clients by outcome",
		},
		[]string{"event", "outcome"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessage records an appended message by payload kind
func RecordMessage(kind string) {
	MessagesTotal.WithLabelValues(kind).Inc()
}

// RecordEventPush records one fan-out attempt outcome
func RecordEventPush(event, outcome string) {
	EventsPushedTotal.WithLabelValues(event, outcome).Inc()
}
