package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/hkjc-advisor/internal/engine"
	"github.com/yourusername/hkjc-advisor/internal/ipc"
	"github.com/yourusername/hkjc-advisor/internal/logger"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

const racePayload = `{"race_id": "HV-R1", "entrants": [{"id": "1", "odds": 2.0}, {"id": "2", "odds": 4.0}, {"id": "3", "odds": 4.0}]}`

func newTestServer(t *testing.T, mutate func(*Config)) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	cfg := Config{
		ServiceName:   "hkjc-advisor",
		Version:       "test",
		Logger:        log,
		Router:        ipc.NewRouter(engine.New(log), log),
		EnableMetrics: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := NewServer(cfg)
	srv.SetReady(true)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postIPC(t *testing.T, ts *httptest.Server, channel, body string, header http.Header) (*http.Response, ipc.Response) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/ipc/"+channel, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ipc.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

// TestHTTPProcessAndAdvise tests both operations over HTTP
func TestHTTPProcessAndAdvise(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, processed := postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload,
		http.Header{"X-Request-Id": []string{"abc"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.True(t, processed.OK)
	assert.Equal(t, "abc", processed.ID)

	resp, advised := postIPC(t, ts, ipc.ChannelGetBettingAdvice, string(processed.Data), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, advised.OK)

	var advice models.BettingAdvice
	require.NoError(t, json.Unmarshal(advised.Data, &advice))
	assert.Equal(t, "1", advice.Selection)
}

// TestHTTPStatusCodes tests the status returned for each failure kind
func TestHTTPStatusCodes(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		channel string
		body    string
		status  int
		kind    models.ErrorKind
	}{
		{
			name:    "malformed payload",
			channel: ipc.ChannelProcessRaceData,
			body:    `{"entrants": [`,
			status:  http.StatusUnprocessableEntity,
			kind:    models.KindMalformedPayload,
		},
		{
			name:    "invalid entrant",
			channel: ipc.ChannelProcessRaceData,
			body:    `{"race_id": "R1", "entrants": [{"id": "1", "odds": -2}]}`,
			status:  http.StatusUnprocessableEntity,
			kind:    models.KindInvalidEntrant,
		},
		{
			name:    "insufficient data",
			channel: ipc.ChannelGetBettingAdvice,
			body:    `{"race_id": "R1", "entrants": [{"id": "1", "odds": 2, "scratched": true}]}`,
			status:  http.StatusOK,
			kind:    models.KindInsufficientData,
		},
		{
			name:    "unknown channel",
			channel: "cancel-bet",
			body:    `{}`,
			status:  http.StatusNotFound,
			kind:    ipc.KindUnknownChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postIPC(t, ts, tt.channel, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, out.OK)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.kind, out.Error.Kind)
		})
	}
}

// TestHTTPPayloadLimit tests that oversized bodies are rejected as malformed
func TestHTTPPayloadLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.MaxPayloadBytes = 16
	})

	resp, out := postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, out.Error)
	assert.Equal(t, models.KindMalformedPayload, out.Error.Kind)
	assert.Contains(t, out.Error.Message, "16 bytes")
}

// TestHTTPAuth tests the bearer token check
func TestHTTPAuth(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.AuthToken = "s3cret"
	})

	resp, out := postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, out.Error)
	assert.Equal(t, ipc.KindUnauthorized, out.Error.Kind)

	resp, out = postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload,
		http.Header{"Authorization": []string{"Bearer s3cret"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.OK)
}

// TestHTTPRateLimit tests that requests beyond the burst are rejected
func TestHTTPRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	resp, _ := postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.NotNil(t, out.Error)
	assert.Equal(t, ipc.KindRateLimited, out.Error.Kind)
}

// TestWebSocketIPC tests request/response exchange over a WebSocket
func TestWebSocketIPC(t *testing.T) {
	ts := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ipc/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ipc.Request{
		ID:      "ws-1",
		Channel: ipc.ChannelProcessRaceData,
		Payload: json.RawMessage(racePayload),
	}))

	var processed ipc.Response
	require.NoError(t, conn.ReadJSON(&processed))
	assert.Equal(t, "ws-1", processed.ID)
	require.True(t, processed.OK)

	require.NoError(t, conn.WriteJSON(ipc.Request{
		ID:      "ws-2",
		Channel: ipc.ChannelGetBettingAdvice,
		Payload: processed.Data,
	}))

	var advised ipc.Response
	require.NoError(t, conn.ReadJSON(&advised))
	assert.Equal(t, "ws-2", advised.ID)
	require.True(t, advised.OK)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var malformed ipc.Response
	require.NoError(t, conn.ReadJSON(&malformed))
	assert.False(t, malformed.OK)
	require.NotNil(t, malformed.Error)
	assert.Equal(t, models.KindMalformedPayload, malformed.Error.Kind)
}

// TestHealthEndpoints tests the health, liveness and readiness endpoints
func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/health", "/live", "/ready"} {
		t.Run(path, func(t *testing.T) {
			resp, err := ts.Client().Get(ts.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, "hkjc-advisor", body["service"])
		})
	}
}

// TestReadyWhenNotReady tests the readiness check before startup completes
func TestReadyWhenNotReady(t *testing.T) {
	log := logger.Discard()
	srv := NewServer(Config{ServiceName: "hkjc-advisor", Logger: log, Router: ipc.NewRouter(engine.New(log), log)})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

// TestMetricsEndpoint tests that IPC traffic shows up in the metrics output
func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	postIPC(t, ts, ipc.ChannelProcessRaceData, racePayload, nil)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hkjc_advisor_ipc_requests_total")
}
