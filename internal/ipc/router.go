// Package ipc routes named request/response channels to the engine.
package ipc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/hkjc-advisor/internal/engine"
	"github.com/yourusername/hkjc-advisor/internal/metrics"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// Channel names
const (
	ChannelProcessRaceData    = engine.OpProcessRaceData
	ChannelGetBettingAdvice   = engine.OpGetBettingAdvice
	ChannelAnalyzeFormHistory = engine.OpAnalyzeFormHistory
)

// Transport error kinds. They never come from the engine.
const (
	KindUnknownChannel models.ErrorKind = "UnknownChannel"
	KindRateLimited    models.ErrorKind = "RateLimited"
	KindUnauthorized   models.ErrorKind = "Unauthorized"
)

// Request is one call across the IPC boundary
type Request struct {
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Response is the tagged success-or-error reply to a Request
type Response struct {
	ID      string               `json:"id"`
	Channel string               `json:"channel"`
	OK      bool                 `json:"ok"`
	Data    json.RawMessage      `json:"data,omitempty"`
	Error   *models.ErrorPayload `json:"error,omitempty"`
}

// Handler serves one channel
type Handler func(payload json.RawMessage) (interface{}, error)

// Router dispatches requests to channel handlers. Handlers are registered
// before the router is shared and never change afterwards.
type Router struct {
	handlers map[string]Handler
	logger   *logrus.Entry
}

// NewRouter creates a router serving the engine operations
func NewRouter(eng *engine.Engine, logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Router{
		handlers: make(map[string]Handler),
		logger:   logger.WithField("component", "ipc"),
	}

	r.Register(ChannelProcessRaceData, func(payload json.RawMessage) (interface{}, error) {
		return eng.ProcessRaceData(payload)
	})
	r.Register(ChannelGetBettingAdvice, func(payload json.RawMessage) (interface{}, error) {
		return eng.GetBettingAdviceFromPayload(payload)
	})
	r.Register(ChannelAnalyzeFormHistory, func(payload json.RawMessage) (interface{}, error) {
		return eng.AnalyzeFormHistory(payload)
	})

	return r
}

// Register adds or replaces a channel handler
func (r *Router) Register(channel string, h Handler) {
	r.handlers[channel] = h
}

// Channels returns the registered channel names in order
func (r *Router) Channels() []string {
	channels := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		channels = append(channels, name)
	}
	sort.Strings(channels)
	return channels
}

// Dispatch serves a request. It always returns a well-formed response.
func (r *Router) Dispatch(req Request) Response {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	resp := r.dispatch(req)

	status := "ok"
	if resp.Error != nil {
		status = string(resp.Error.Kind)
	}
	metrics.RecordIPCRequest(req.Channel, status, time.Since(start).Seconds())

	r.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"channel":    req.Channel,
		"status":     status,
		"duration":   time.Since(start).String(),
	}).Debug("IPC request handled")

	return resp
}

func (r *Router) dispatch(req Request) Response {
	handler, ok := r.handlers[req.Channel]
	if !ok {
		return ErrorResponse(req, models.ErrorPayload{
			Kind:    KindUnknownChannel,
			Message: fmt.Sprintf("unknown channel %q", req.Channel),
		})
	}

	result, err := handler(req.Payload)
	if err != nil {
		return ErrorResponse(req, engine.ErrorPayloadFor(err))
	}

	data, err := json.Marshal(result)
	if err != nil {
		r.logger.WithError(err).WithField("channel", req.Channel).Error("Failed to encode IPC response")
		return ErrorResponse(req, engine.ErrorPayloadFor(err))
	}

	return Response{ID: req.ID, Channel: req.Channel, OK: true, Data: data}
}

// ErrorResponse builds a failed response for a request
func ErrorResponse(req Request, payload models.ErrorPayload) Response {
	return Response{ID: req.ID, Channel: req.Channel, OK: false, Error: &payload}
}

// StatusFor maps a response to the HTTP status the server replies with.
// InsufficientData is an expected outcome, not a failure of the request.
func StatusFor(resp Response) int {
	if resp.OK || resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Kind {
	case models.KindMalformedPayload, models.KindInvalidEntrant:
		return http.StatusUnprocessableEntity
	case models.KindInsufficientData:
		return http.StatusOK
	case KindUnknownChannel:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
