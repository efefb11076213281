// Package server exposes the IPC channels over HTTP and WebSocket, alongside
// health and metrics endpoints.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/hkjc-advisor/internal/ipc"
	"github.com/yourusername/hkjc-advisor/internal/metrics"
	"github.com/yourusername/hkjc-advisor/internal/models"
	"golang.org/x/time/rate"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the IPC server.
type Config struct {
	ServiceName     string
	Version         string
	Commit          string
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RateLimit       float64 // requests per second, 0 disables limiting
	RateBurst       int
	AuthToken       string
	MaxPayloadBytes int64
	EnableMetrics   bool
	Logger          *logrus.Logger
	Router          *ipc.Router
}

// Server serves IPC requests from the host shell.
type Server struct {
	cfg      Config
	router   *ipc.Router
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	server   *http.Server
	logger   *logrus.Entry
	mu       sync.RWMutex
	ready    bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewServer creates a new IPC server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 1 << 20
	}

	s := &Server{
		cfg:    cfg,
		router: cfg.Router,
		logger: cfg.Logger.WithField("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	if s.cfg.EnableMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	mux.Handle("GET /ipc/ws", s.withAuth(http.HandlerFunc(s.handleWebSocket)))
	mux.Handle("POST /ipc/{channel}", s.withAuth(s.withRateLimit(http.HandlerFunc(s.handleIPC))))
	return mux
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start starts the server in the background. It shuts down when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("server has no IPC router")
	}

	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr":     listener.Addr().String(),
			"service":  s.cfg.ServiceName,
			"channels": s.router.Channels(),
		}).Info("IPC server starting")

		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("IPC server error")
		}
	}()

	// Wait for context cancellation
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("IPC server shutdown incomplete")
		}
	}()

	s.SetReady(true)
	return nil
}

// Shutdown gracefully shuts down the server. Only the first call has effect.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.shutdownOnce.Do(func() {
		s.SetReady(false)
		s.logger.Info("IPC server shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.shutdownErr = s.server.Shutdown(ctx)
	})
	return s.shutdownErr
}

// handleIPC serves one request on the channel named in the path.
func (s *Server) handleIPC(w http.ResponseWriter, r *http.Request) {
	req := ipc.Request{
		ID:      r.Header.Get("X-Request-ID"),
		Channel: r.PathValue("channel"),
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		message := "failed to read request body"
		if errors.As(err, &tooLarge) {
			message = fmt.Sprintf("payload exceeds %d bytes", tooLarge.Limit)
		}
		s.writeResponse(w, ipc.ErrorResponse(req, models.ErrorPayload{
			Kind:    models.KindMalformedPayload,
			Message: message,
		}))
		return
	}
	req.Payload = body

	s.writeResponse(w, s.router.Dispatch(req))
}

// handleWebSocket serves a sequence of IPC requests over one connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WebSocketOpened()
	defer metrics.WebSocketClosed()

	conn.SetReadLimit(s.cfg.MaxPayloadBytes)
	s.logger.WithField("remote", r.RemoteAddr).Debug("WebSocket client connected")

	for {
		var req ipc.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).Warn("WebSocket read failed")
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				resp := ipc.ErrorResponse(req, models.ErrorPayload{
					Kind:    models.KindMalformedPayload,
					Message: "message is not a valid IPC request",
				})
				if werr := conn.WriteJSON(resp); werr == nil {
					continue
				}
			}
			return
		}

		var resp ipc.Response
		if s.limiter != nil && !s.limiter.Allow() {
			metrics.RecordRateLimited()
			resp = ipc.ErrorResponse(req, models.ErrorPayload{Kind: ipc.KindRateLimited, Message: "rate limit exceeded"})
		} else {
			resp = s.router.Dispatch(req)
		}

		if err := conn.WriteJSON(resp); err != nil {
			s.logger.WithError(err).Warn("WebSocket write failed")
			return
		}
	}
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	expected := []byte("Bearer " + s.cfg.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			s.writeResponse(w, ipc.ErrorResponse(ipc.Request{Channel: r.PathValue("channel")}, models.ErrorPayload{
				Kind:    ipc.KindUnauthorized,
				Message: "missing or invalid bearer token",
			}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			metrics.RecordRateLimited()
			w.Header().Set("Retry-After", "1")
			s.writeResponse(w, ipc.ErrorResponse(ipc.Request{Channel: r.PathValue("channel")}, models.ErrorPayload{
				Kind:    ipc.KindRateLimited,
				Message: "rate limit exceeded",
			}))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeResponse(w http.ResponseWriter, resp ipc.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ipc.StatusFor(resp))
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithError(err).Warn("Failed to write IPC response")
	}
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleLive handles the /live endpoint - kubernetes liveness check.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Service: s.cfg.ServiceName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleReady handles the /ready endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.router == nil {
		allHealthy = false
		checks["router"] = "missing"
	} else {
		checks["router"] = fmt.Sprintf("%d channels", len(s.router.Channels()))
	}

	response := ReadyResponse{
		Service:  s.cfg.ServiceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	w.Header().Set("Content-Type", "application/json")

	if allHealthy {
		response.Status = "ok"
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}
