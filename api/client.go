// Package api is the REST transport to the storefront backend.
//
// Every call takes the caller's *Session explicitly; the client itself holds
// no credentials. Calls return the decoded body on success and a raw
// *core.TransportError or *core.HTTPError on failure. Classification and
// retries are the caller's business (see package resilience).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/normalize"
	"github.com/itsneelabh/storesync/telemetry"
)

const maxBodyBytes = 10 << 20

// Session carries the bearer token of a logged-in user. Its lifetime is owned
// by whoever performed the login; pass the same pointer to every call.
type Session struct {
	Token  string
	UserID string
	User   normalize.Record
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Response is a decoded 2xx backend answer.
type Response struct {
	Status    int
	Body      interface{}
	RequestID string
}

// Client talks to one backend.
type Client struct {
	baseURL     string
	endpoints   core.Endpoints
	httpClient  *http.Client
	timeout     time.Duration
	authTimeout time.Duration
	userAgent   string
	logger      core.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l core.Logger) Option {
	return func(c *Client) {
		c.logger = core.WithComponent(l, "api")
	}
}

// NewClient creates a client for the backend described by cfg.
func NewClient(cfg core.APIConfig, auth core.AuthConfig, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &core.FrameworkError{
			Op:      "api.NewClient",
			Kind:    "config",
			Message: fmt.Sprintf("invalid base URL %q", cfg.BaseURL),
			Err:     core.ErrInvalidConfiguration,
		}
	}

	endpoints := cfg.Endpoints
	if endpoints == (core.Endpoints{}) {
		endpoints = core.DefaultEndpoints()
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		endpoints:   endpoints,
		httpClient:  telemetry.NewTracedHTTPClient(nil, 0),
		timeout:     cfg.Timeout,
		authTimeout: auth.Timeout,
		userAgent:   cfg.UserAgent,
		logger:      &core.NoOpLogger{},
	}
	if c.userAgent == "" {
		c.userAgent = "storesync/" + Version
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoints returns the path table in use.
func (c *Client) Endpoints() core.Endpoints {
	return c.endpoints
}

// Do sends one request. path may contain "{id}", which is replaced with the
// escaped id argument. body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, sess *Session, method, path, id string, body interface{}) (*Response, error) {
	return c.do(ctx, c.timeout, sess, method, path, id, body)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, sess *Session, method, path, id string, body interface{}) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := c.baseURL + strings.ReplaceAll(path, "{id}", url.PathEscape(id))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, target, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, target, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.Counter(telemetry.MetricRequests, "method", method, "status", "transport_error")
		c.logger.Debug("Request failed without response", map[string]interface{}{
			"operation":  "http_request",
			"method":     method,
			"url":        target,
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, &core.TransportError{Method: method, URL: target, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.TransportError{Method: method, URL: target, Timeout: isTimeout(err), Err: err}
	}

	decoded, decodeErr := normalize.Decode(raw)
	if decodeErr != nil {
		decoded = string(raw)
	}

	status := strconv.Itoa(resp.StatusCode)
	telemetry.Counter(telemetry.MetricRequests, "method", method, "status", status)
	telemetry.Duration(telemetry.MetricRequestDuration, start, "method", method)

	c.logger.Debug("Request completed", map[string]interface{}{
		"operation":   "http_request",
		"method":      method,
		"url":         target,
		"status":      resp.StatusCode,
		"request_id":  requestID,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &core.HTTPError{
			Method:        method,
			URL:           target,
			Status:        resp.StatusCode,
			ServerMessage: normalize.Message(decoded),
			Body:          decoded,
		}
	}

	// Some endpoints answer 200 with success:false instead of an error status.
	if normalize.IsFailure(decoded) {
		return nil, &core.HTTPError{
			Method:        method,
			URL:           target,
			Status:        resp.StatusCode,
			ServerMessage: normalize.Message(decoded),
			Body:          decoded,
		}
	}

	return &Response{Status: resp.StatusCode, Body: decoded, RequestID: requestID}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
