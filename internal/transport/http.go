// Package transport sends requests to the remote platform API over HTTP and
// unwraps its response envelope.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/components"
)

const (
	defaultTimeout  = 30 * time.Second
	errorCodeOK     = 1
	maxErrorBodyLen = 512
)

// ErrTransport matches every failure returned by Client.SendRequest.
var ErrTransport = errors.New("transport failure")

// TokenSource returns the bearer token of a session.
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
}

// APIError is a request the remote API answered with a failure.
type APIError struct {
	StatusCode  int
	ErrorCode   int
	ErrorStatus string
	Message     string
	RequestID   string
}

func (e *APIError) Error() string {
	if e.ErrorStatus != "" {
		return fmt.Sprintf("api error %d %s (http %d): %s", e.ErrorCode, e.ErrorStatus, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (http %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}

type envelope struct {
	Response        json.RawMessage `json:"Response"`
	ErrorCode       int             `json:"ErrorCode"`
	ThrottleSeconds int             `json:"ThrottleSeconds"`
	ErrorStatus     string          `json:"ErrorStatus"`
	Message         string          `json:"Message"`
}

// Client implements components.Transport. It never retries.
type Client struct {
	httpClient *http.Client
	apiKey     string
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAPIKey sets the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTokenSource authenticates requests carrying a session id.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ components.Transport = (*Client)(nil)

// SendRequest performs req and returns the Response member of the envelope.
func (c *Client) SendRequest(ctx context.Context, req components.Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}
	if req.SessionID != "" {
		if c.tokens == nil {
			return nil, fmt.Errorf("session %s given but no token source configured", req.SessionID)
		}
		token, err := c.tokens.Token(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get token for session %s: %w", req.SessionID, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	log := logrus.WithFields(logrus.Fields{
		"method":     method,
		"url":        req.URL,
		"request_id": requestID,
	})
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}
	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Remote API call")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(raw)),
			RequestID:  requestID,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (env.ErrorCode != 0 && env.ErrorCode != errorCodeOK) {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			ErrorCode:   env.ErrorCode,
			ErrorStatus: env.ErrorStatus,
			Message:     message,
			RequestID:   requestID,
		}
	}
	if env.Response == nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  env.ErrorCode,
			Message:    "envelope has no Response member",
			RequestID:  requestID,
		}
	}
	if env.ThrottleSeconds > 0 {
		log.Warnf("Remote API asks to throttle for %ds", env.ThrottleSeconds)
	}

	return env.Response, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBodyLen {
		return s
	}
	return s[:maxErrorBodyLen] + "..."
}
