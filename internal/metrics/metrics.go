// Package metrics provides the centralized Prometheus metrics registry for the advisor.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hkjc_advisor"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// IPC request metrics
var (
	IPCRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ipc_requests_total",
		Help:      "Total number of IPC requests by channel and status",
	}, []string{"channel", "status"})

	IPCRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ipc_request_duration_seconds",
		Help:      "Duration of IPC request handling in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"channel"})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter",
	})

	WebSocketConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Number of open WebSocket IPC connections",
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register transport metrics
		registry.MustRegister(IPCRequestsTotal)
		registry.MustRegister(IPCRequestDuration)
		registry.MustRegister(RateLimitedTotal)
		registry.MustRegister(WebSocketConnections)

		// Register engine metrics
		registry.MustRegister(RacesProcessedTotal)
		registry.MustRegister(AdviceIssuedTotal)
		registry.MustRegister(EngineErrorsTotal)
		registry.MustRegister(SelectionScoreGap)
		registry.MustRegister(AdviceCacheHitRatio)
		registry.MustRegister(AdviceCacheItems)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordIPCRequest records a handled IPC request.
func RecordIPCRequest(channel, status string, durationSeconds float64) {
	IPCRequestsTotal.WithLabelValues(channel, status).Inc()
	IPCRequestDuration.WithLabelValues(channel).Observe(durationSeconds)
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}

// WebSocketOpened records a new WebSocket connection.
func WebSocketOpened() {
	WebSocketConnections.Inc()
}

// WebSocketClosed records a closed WebSocket connection.
func WebSocketClosed() {
	WebSocketConnections.Dec()
}
