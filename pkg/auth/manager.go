package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for token lifecycle.
var (
	tokenCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toast_token_cache_hits_total",
		Help: "Total number of token requests served from the cached token",
	})

	tokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toast_token_refreshes_total",
		Help: "Total number of successful token refreshes",
	})

	tokenRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toast_token_refresh_failures_total",
		Help: "Total number of failed login attempts",
	})
)

// ErrAuthFailed indicates the login was rejected or unusable.
// Authentication failures are fatal for the run: without a token no
// endpoint can be called, so callers stop instead of retrying.
var ErrAuthFailed = errors.New("toast authentication failed")

const (
	// loginPath is the machine-client login endpoint, relative to the base URL.
	loginPath = "/authentication/v1/authentication/login"

	// userAccessType identifies machine clients to the login endpoint.
	userAccessType = "TOAST_MACHINE_CLIENT"

	// loginTimeout bounds the login request.
	loginTimeout = 10 * time.Second
)

// Config holds token manager configuration.
type Config struct {
	// BaseURL is the API host, e.g. https://ws-api.toasttab.com.
	BaseURL string

	// ClientID and ClientSecret are the machine-client credentials.
	ClientID     string
	ClientSecret string

	// HTTPClient issues the login request (default: 10s timeout client).
	HTTPClient *http.Client

	// Logger for token lifecycle events.
	Logger zerolog.Logger
}

// Manager caches one machine-client token and refreshes it on demand.
// Safe for concurrent use: the mutex serializes refreshes, so callers
// racing an expired token block until one login completes and then all
// observe the fresh token.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	token *Token

	// now is swappable for tests.
	now func() time.Time
}

// NewManager validates cfg and creates a token manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client credentials are required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: loginTimeout}
	}

	return &Manager{
		cfg: cfg,
		now: time.Now,
	}, nil
}

// EnsureValid returns a usable bearer token, logging in first when the
// cached token is missing or inside the refresh threshold. Exactly one
// login happens per expiry regardless of how many goroutines race it.
func (m *Manager) EnsureValid(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.token.Valid(now) {
		tokenCacheHits.Inc()
		m.cfg.Logger.Debug().
			Dur("remaining", m.token.Remaining(now)).
			Msg("Using cached token")
		return m.token.Value, nil
	}

	token, err := m.login(ctx)
	if err != nil {
		tokenRefreshFailures.Inc()
		m.cfg.Logger.Error().Err(err).Msg("Token refresh failed")
		return "", err
	}

	m.token = token
	tokenRefreshes.Inc()
	m.cfg.Logger.Info().
		Time("expires_at", token.ExpiresAt).
		Msg("Token refreshed")

	return token.Value, nil
}

// Invalidate drops the cached token, forcing a login on the next call.
// Called after the API rejects a request with 401.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
}

type loginRequest struct {
	ClientID       string `json:"clientId"`
	ClientSecret   string `json:"clientSecret"`
	UserAccessType string `json:"userAccessType"`
}

type loginResponse struct {
	Token struct {
		AccessToken string `json:"accessToken"`
	} `json:"token"`
}

// login POSTs the machine-client credentials and returns the fresh token.
// All failure modes wrap ErrAuthFailed.
func (m *Manager) login(ctx context.Context) (*Token, error) {
	body, err := json.Marshal(loginRequest{
		ClientID:       m.cfg.ClientID,
		ClientSecret:   m.cfg.ClientSecret,
		UserAccessType: userAccessType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal login request: %v", ErrAuthFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build login request: %v", ErrAuthFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: login request: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: login returned status %d", ErrAuthFailed, resp.StatusCode)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode login response: %v", ErrAuthFailed, err)
	}
	if decoded.Token.AccessToken == "" {
		return nil, fmt.Errorf("%w: login response missing access token", ErrAuthFailed)
	}

	return &Token{
		Value:     decoded.Token.AccessToken,
		ExpiresAt: m.now().Add(AssumedLifetime),
	}, nil
}
