// Package request is the HTTP client used to talk to the admin backend:
// per-host backoff, retries on 429/5xx, request logging and API stats.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"foodstreet/pkg/config"
	"foodstreet/pkg/logging"
	"foodstreet/pkg/tracker"
	"foodstreet/pkg/version"
)

var (
	defaultUserAgent = fmt.Sprintf("FoodStreet Guide (foodstreet/%s)", version.Version)
)

// maxBodyBytes caps a response body.
const maxBodyBytes = 16 << 20

// StatusError is returned for non-retryable HTTP error statuses.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: %s %s: status %d", e.Method, e.URL, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client performs HTTP requests with retries and tracking.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *HostBackoff

	maxAttempts int
	baseDelay   time.Duration
}

// New creates a new Client from request settings. t may be nil.
func New(cfg config.RequestConfig, t *tracker.Tracker) *Client {
	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	attempts := cfg.Retries
	if attempts <= 0 {
		attempts = 1
	}
	base := time.Duration(cfg.Backoff.BaseDelay)
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	maxDelay := time.Duration(cfg.Backoff.MaxDelay)
	if maxDelay < base {
		maxDelay = base
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		tracker:     t,
		backoff:     NewHostBackoff(base, maxDelay),
		maxAttempts: attempts,
		baseDelay:   base,
	}
}

// Get performs a GET request and returns the body.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, u, nil, nil)
}

// PostJSON marshals v and POSTs it as application/json.
func (c *Client) PostJSON(ctx context.Context, u string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.Do(ctx, http.MethodPost, u, body, map[string]string{"Content-Type": "application/json"})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, u string) ([]byte, error) {
	return c.Do(ctx, http.MethodDelete, u, nil, nil)
}

// Do performs a request, retrying network errors, 429 and 5xx with exponential backoff.
func (c *Client) Do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := parsed.Host

	if err := c.backoff.Allow(provider); err != nil {
		return nil, err
	}

	out, err := c.executeWithBackoff(ctx, method, u, body, headers)
	if err != nil {
		if ctx.Err() == nil && !IsStatus(err, http.StatusNotFound) {
			c.backoff.RecordFailure(provider)
		}
		c.track(provider, false)
		return nil, err
	}
	c.backoff.RecordSuccess(provider)
	c.track(provider, true)
	return out, nil
}

func (c *Client) track(provider string, ok bool) {
	if c.tracker == nil {
		return
	}
	if ok {
		c.tracker.TrackAPISuccess(provider)
	} else {
		c.tracker.TrackAPIFailure(provider)
	}
}

func (c *Client) newRequest(ctx context.Context, method, u string, body []byte, headers map[string]string) (*http.Request, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 0 {
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			select {
			case <-time.After(sleepDur):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := c.newRequest(ctx, method, u, body, headers)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.RequestLogger.Warn("request failed", "method", method, "url", u, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		logging.RequestLogger.Info("request", "method", method, "url", u, "status", resp.StatusCode,
			"attempt", attempt+1, "duration", time.Since(start))

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", u, "attempt", attempt+1)
			lastErr = &StatusError{Method: method, URL: u, Code: resp.StatusCode}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{Method: method, URL: u, Code: resp.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
