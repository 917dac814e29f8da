// Package auth manages Toast API machine-client authentication: it logs in
// with client credentials, caches the bearer token, and refreshes it before
// the assumed expiry.
package auth

import (
	"time"
)

// Token lifecycle constants. The login endpoint does not return a lifetime,
// so tokens are assumed to live one hour and refreshed five minutes early.
const (
	// AssumedLifetime is how long a freshly issued token is trusted.
	AssumedLifetime = time.Hour

	// RefreshThreshold is how much remaining lifetime triggers a refresh.
	RefreshThreshold = 5 * time.Minute
)

// Token is a cached bearer token with its assumed expiry.
type Token struct {
	// Value is the bearer token string sent in the Authorization header.
	Value string `json:"value"`

	// ExpiresAt is the assumed expiry instant (issue time + AssumedLifetime).
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at the given instant.
// A token is valid while its remaining lifetime exceeds the refresh
// threshold; a nil or empty token is never valid.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return now.Before(t.ExpiresAt.Add(-RefreshThreshold))
}

// Remaining returns the time until the assumed expiry.
// Returns 0 if already expired.
func (t *Token) Remaining(now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	remaining := t.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
