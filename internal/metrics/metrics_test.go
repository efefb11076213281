package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of a counter or gauge series in the global registry
func gathered(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := GetRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue series
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestMetricsRegistry(t *testing.T) {
	// Initialize the registry
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordIPCRequest(t *testing.T) {
	InitRegistry()
	labels := map[string]string{"channel": "process-race-data", "status": "ok"}
	before := gathered(t, "hkjc_advisor_ipc_requests_total", labels)

	RecordIPCRequest("process-race-data", "ok", 0.002)

	assert.Equal(t, before+1, gathered(t, "hkjc_advisor_ipc_requests_total", labels))
}

func TestRecordEngineOutcomes(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		record func()
		metric string
		labels map[string]string
	}{
		{
			name:   "race accepted",
			record: func() { RecordRaceProcessed("accepted") },
			metric: "hkjc_advisor_races_processed_total",
			labels: map[string]string{"outcome": "accepted"},
		},
		{
			name:   "advice issued",
			record: func() { RecordAdvice("High", 0.175) },
			metric: "hkjc_advisor_advice_issued_total",
			labels: map[string]string{"confidence": "High"},
		},
		{
			name:   "engine error",
			record: func() { RecordEngineError("get-betting-advice", "InsufficientData") },
			metric: "hkjc_advisor_engine_errors_total",
			labels: map[string]string{"operation": "get-betting-advice", "kind": "InsufficientData"},
		},
		{
			name:   "rate limited",
			record: RecordRateLimited,
			metric: "hkjc_advisor_rate_limited_total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := gathered(t, tt.metric, tt.labels)
			tt.record()
			assert.Equal(t, before+1, gathered(t, tt.metric, tt.labels))
		})
	}
}

func TestUpdateAdviceCache(t *testing.T) {
	InitRegistry()

	UpdateAdviceCache(0.75, 12)

	assert.Equal(t, 0.75, gathered(t, "hkjc_advisor_advice_cache_hit_ratio", nil))
	assert.Equal(t, float64(12), gathered(t, "hkjc_advisor_advice_cache_items", nil))
}

func TestWebSocketGauge(t *testing.T) {
	InitRegistry()
	before := gathered(t, "hkjc_advisor_websocket_connections", nil)

	WebSocketOpened()
	WebSocketOpened()
	WebSocketClosed()

	assert.Equal(t, before+1, gathered(t, "hkjc_advisor_websocket_connections", nil))
	WebSocketClosed()
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordRaceProcessed("rejected")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hkjc_advisor_races_processed_total")
}
