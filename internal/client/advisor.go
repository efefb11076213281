package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/hkjc-advisor/internal/ipc"
	"github.com/yourusername/hkjc-advisor/internal/models"
)

// RemoteError is a failed IPC response returned by the server
type RemoteError struct {
	StatusCode int
	Payload    models.ErrorPayload
}

func (e *RemoteError) Error() string {
	if e.Payload.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Payload.Kind, e.Payload.Message, e.Payload.Field)
	}
	return fmt.Sprintf("%s: %s", e.Payload.Kind, e.Payload.Message)
}

// Client calls the IPC channels of an advisor server
type Client struct {
	baseURL   string
	authToken string
	http      *RateLimitedHTTPClient
	logger    *logrus.Entry
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL, authToken string, cfg HTTPClientConfig, logger *logrus.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid advisor URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid advisor URL scheme %q", parsed.Scheme)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		http:      NewRateLimitedHTTPClient(cfg, logger),
		logger:    logger.WithField("component", "advisor_client"),
	}, nil
}

// Call sends a payload on a channel. A failed response is returned as *RemoteError.
func (c *Client) Call(ctx context.Context, channel string, payload []byte) (*ipc.Response, error) {
	requestID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ipc/"+url.PathEscape(channel), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", channel, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", channel, err)
	}

	var out ipc.Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unexpected %s response (status %d): %w", channel, resp.StatusCode, err)
	}

	c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"channel":    channel,
		"status":     resp.StatusCode,
		"ok":         out.OK,
	}).Debug("IPC call completed")

	if !out.OK {
		remote := &RemoteError{StatusCode: resp.StatusCode}
		if out.Error != nil {
			remote.Payload = *out.Error
		}
		return &out, remote
	}
	return &out, nil
}

// ProcessRaceData validates a raw race payload on the server
func (c *Client) ProcessRaceData(ctx context.Context, payload []byte) (*models.RaceRecord, error) {
	resp, err := c.Call(ctx, ipc.ChannelProcessRaceData, payload)
	if err != nil {
		return nil, err
	}
	var record models.RaceRecord
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode race record: %w", err)
	}
	return &record, nil
}

// GetBettingAdvice requests advice for a validated record
func (c *Client) GetBettingAdvice(ctx context.Context, record *models.RaceRecord) (*models.BettingAdvice, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode race record: %w", err)
	}
	resp, err := c.Call(ctx, ipc.ChannelGetBettingAdvice, payload)
	if err != nil {
		return nil, err
	}
	var advice models.BettingAdvice
	if err := json.Unmarshal(resp.Data, &advice); err != nil {
		return nil, fmt.Errorf("failed to decode betting advice: %w", err)
	}
	return &advice, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}
