// Package client provides the Toast API HTTP client: authenticated,
// rate-limited, paginated fetching with bounded retries, Retry-After
// handling, and record normalization.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goforsam/toast-etl/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API requests.
var (
	toastRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_requests_total",
		Help: "Total API requests by endpoint class and status",
	}, []string{"endpoint_class", "status"})

	toastRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toast_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 90},
	}, []string{"endpoint_class"})

	toastErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toast_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents non-retryable 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// TokenSource supplies bearer tokens for outbound requests.
// auth.Manager implements it.
type TokenSource interface {
	EnsureValid(ctx context.Context) (string, error)
	Invalidate()
}

// Client is the Toast API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	// sleep covers Retry-After and backoff waits; swappable for tests.
	sleep sleepFunc
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API host, e.g. https://ws-api.toasttab.com.
	BaseURL string

	// Tokens supplies the bearer token attached to every request.
	Tokens TokenSource

	// Limiter paces outbound requests per (endpoint class, restaurant).
	Limiter *ratelimit.Limiter

	// PageSize for paginated endpoints.
	PageSize int

	// MaxPages caps pagination per fetch; the sole backstop against an
	// endpoint that never reports its last page.
	MaxPages int

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// RetryAfterDefault is the 429 wait when the header is absent or invalid.
	RetryAfterDefault time.Duration
}

// DefaultConfig returns the standard production configuration.
func DefaultConfig(tokens TokenSource, limiter *ratelimit.Limiter) Config {
	return Config{
		BaseURL:           "https://ws-api.toasttab.com",
		Tokens:            tokens,
		Limiter:           limiter,
		PageSize:          100,
		MaxPages:          100,
		RequestTimeout:    90 * time.Second,
		RetryAfterDefault: 60 * time.Second,
	}
}

// New creates a Toast API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.RetryAfterDefault <= 0 {
		cfg.RetryAfterDefault = 60 * time.Second
	}

	logger := log.With().Str("component", "toast-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		config: cfg,
		logger: logger,
		sleep:  sleepContext,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// get performs one rate-limited GET with bounded retries and returns the
// response body. 429 and auth failures surface as errors for the caller:
// the fetch loop owns Retry-After replays and fatal-auth aborts.
func (c *Client) get(ctx context.Context, spec FetchSpec, query url.Values) ([]byte, error) {
	if err := c.config.Limiter.Wait(ctx, spec.Class, spec.Tenant); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	var body []byte
	err := retryWithBackoff(ctx, c.sleep, func() error {
		b, err := c.getOnce(ctx, spec, query)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getOnce issues a single authenticated request attempt.
func (c *Client) getOnce(ctx context.Context, spec FetchSpec, query url.Values) ([]byte, error) {
	token, err := c.config.Tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+spec.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Toast-Restaurant-External-ID", spec.Tenant)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	class := string(spec.Class)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	toastRequestDuration.WithLabelValues(class).Observe(time.Since(start).Seconds())

	if err != nil {
		toastErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		toastRequestsTotal.WithLabelValues(class, "network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	toastRequestsTotal.WithLabelValues(class, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusTooManyRequests {
		toastErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassRateLimit,
			Message:    resp.Status,
			RetryAfter: c.parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		toastErrorsTotal.WithLabelValues(string(errClass)).Inc()

		if resp.StatusCode == http.StatusUnauthorized {
			// Stale token; force a fresh login on the next request.
			c.config.Tokens.Invalidate()
		}

		c.logger.Warn().
			Str("endpoint", spec.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("API request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		toastErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	return body, nil
}

// classifyStatus categorizes an HTTP status for handling and observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// parseRetryAfter reads a Retry-After header as whole seconds, falling back
// to the configured default when absent or malformed.
func (c *Client) parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return c.config.RetryAfterDefault
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return c.config.RetryAfterDefault
	}
	return time.Duration(seconds) * time.Second
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
