// Package api is the outbound HTTP layer between the SDK and the Clix
// backend. All calls route through the Client, which enforces consistent
// resilience patterns: circuit breaking, bounded retries with exponential
// backoff, Retry-After handling, and error mapping to types.AppError.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/clix-so/clix-go/pkg/types"
)

// basePath prefixes every Clix API route.
const basePath = "/api/v1"

// RetryPolicy configures the retry behavior for backend calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults for SDK calls. Tracking is
// best-effort, so retries are few and short: a slow handler must not pin
// the host app's callback for long.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// Config carries the connection settings for the Clix backend.
type Config struct {
	Endpoint     string
	ProjectID    string
	APIKey       string
	UserAgent    string
	ExtraHeaders map[string]string
}

// Client wraps an *http.Client and a circuit breaker shared by the event
// and device API services.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	retry   RetryPolicy
	cfg     Config
	logger  types.Logger
	sleepFn func(time.Duration)
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithSleepFunc overrides the sleep function used between retries.
// Intended for tests to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleepFn = fn }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates a Client for the given backend configuration.
func NewClient(httpClient *http.Client, cfg Config, logger types.Logger, opts ...Option) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "clix-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	c := &Client{
		http:    httpClient,
		breaker: cb,
		retry:   DefaultRetryPolicy(),
		cfg:     cfg,
		logger:  logger,
		sleepFn: time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newRequest builds a request for path (relative to the API base) with the
// common Clix headers applied.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	url := strings.TrimSuffix(c.cfg.Endpoint, "/") + basePath + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Clix-Project-ID", c.cfg.ProjectID)
	req.Header.Set("X-Clix-API-Key", c.cfg.APIKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for k, v := range c.cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

// do executes the request with circuit breaking and retry on 429/5xx.
// On success (any status below 500 other than 429) the response is
// returned as-is; the caller closes the body and interprets the status.
func (c *Client) do(req *http.Request, body []byte) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 5xx and 429 count as failures for the breaker.
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastResp, lastErr)
}

// computeBackoff determines the wait before the next retry: Retry-After
// when the server sent one, otherwise exponential backoff with full jitter
// clamped to [0, min(MaxWait, MinWait*2^attempt)].
func (c *Client) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > c.retry.MaxWait {
					wait = c.retry.MaxWait
				}
				return wait
			}
		}
	}

	ceiling := math.Min(
		float64(c.retry.MaxWait),
		float64(c.retry.MinWait)*math.Pow(2, float64(attempt)),
	)
	return time.Duration(rand.Float64() * ceiling)
}

// mapError translates a terminal failure into a types.AppError.
func (c *Client) mapError(resp *http.Response, err error) error {
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "clix api rate limited", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(types.ErrCodeUpstreamUnavailable,
				fmt.Sprintf("clix api returned %d", resp.StatusCode), err)
		}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "clix api circuit open", err)
	}
	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "clix api unreachable", err)
}

// send issues the request and interprets the final status. 2xx drains and
// closes the body and returns nil; anything else becomes an AppError.
func (c *Client) send(req *http.Request, body []byte) error {
	resp, err := c.do(req, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return types.NewAppError(types.ErrCodeUpstreamRejected,
		fmt.Sprintf("clix api rejected request: %d %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
}
