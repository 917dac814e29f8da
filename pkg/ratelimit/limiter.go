package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit waits.
var (
	rateLimitWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "toast_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the per-class floor interval",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	}, []string{"endpoint_class"})
)

// Limiter spaces outbound requests per (endpoint class, restaurant) bucket.
// It never retries and never inspects responses; it is purely the outbound
// pacing gate. Callers issue requests for a given bucket sequentially; the
// shared State keeps concurrent buckets safe.
type Limiter struct {
	state     *State
	intervals map[EndpointClass]time.Duration
	logger    zerolog.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter with the given per-class intervals. Classes
// absent from the map fall back to the orders interval. A nil map means
// DefaultIntervals.
func NewLimiter(intervals map[EndpointClass]time.Duration, logger zerolog.Logger) *Limiter {
	if intervals == nil {
		intervals = DefaultIntervals()
	}
	return &Limiter{
		state:     NewState(),
		intervals: intervals,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Interval returns the floor interval for the class. Unknown classes use
// the orders interval, the most conservative paginated budget.
func (l *Limiter) Interval(class EndpointClass) time.Duration {
	if d, ok := l.intervals[class]; ok {
		return d
	}
	if d, ok := l.intervals[ClassOrders]; ok {
		return d
	}
	return DefaultIntervals()[ClassOrders]
}

// Wait blocks until the floor interval since the previous request for
// (class, tenant) has elapsed, then records the new instant. The first
// request for a bucket proceeds immediately. Returns the context error if
// cancelled mid-wait, leaving the bucket's instant untouched.
func (l *Limiter) Wait(ctx context.Context, class EndpointClass, tenant string) error {
	interval := l.Interval(class)
	now := l.now()

	if last, ok := l.state.LastRequest(class, tenant); ok {
		if wait := interval - now.Sub(last); wait > 0 {
			l.logger.Debug().
				Str("endpoint_class", string(class)).
				Str("tenant", tenant).
				Dur("wait", wait).
				Msg("Rate limit floor not reached, waiting")

			rateLimitWaitSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
			now = l.now()
		}
	}

	l.state.Record(class, tenant, now)
	return nil
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
