// Package ratelimit provides per-service rate limiting for calls to external
// services using a token bucket algorithm, combined with a sliding hourly cap
// and failure-driven exponential backoff.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// ServiceConfig holds the rate limiting configuration for one external service.
type ServiceConfig struct {
	RequestsPerMinute int           // Steady-state refill rate
	RequestsPerHour   int           // Sliding one-hour cap
	BurstLimit        int           // Token bucket capacity
	Cooldown          time.Duration // Minimum spacing applied after each admitted call
	BackoffMultiplier float64       // Growth factor for consecutive-failure backoff
	MaxBackoff        time.Duration // Ceiling for a single backoff wait
}

// limiter tracks the rate limiting state for a single service.
// All mutation happens under mu; waiting happens outside of it so that
// other goroutines can acquire concurrently.
type limiter struct {
	mu          sync.Mutex
	cfg         ServiceConfig
	tokens      float64
	lastRefill  time.Time
	window      []time.Time // Timestamps of admitted calls within the last hour
	failures    int
	lastFailure time.Time
}

func newLimiter(cfg ServiceConfig) *limiter {
	return &limiter{
		cfg:        cfg,
		tokens:     float64(cfg.BurstLimit), // Start with a full bucket
		lastRefill: time.Now(),
	}
}

// refillRate returns tokens per second.
func (l *limiter) refillRate() float64 {
	return float64(l.cfg.RequestsPerMinute) / 60.0
}

// backoff returns the backoff duration for the current failure count.
func (l *limiter) backoff() time.Duration {
	backoff := l.cfg.Cooldown
	for i := 0; i < l.failures; i++ {
		backoff = time.Duration(float64(backoff) * l.cfg.BackoffMultiplier)
		if backoff >= l.cfg.MaxBackoff {
			return l.cfg.MaxBackoff
		}
	}
	return backoff
}

// tryAcquire attempts to consume one token at the given instant.
// On success it records the admission timestamp in the sliding window and
// returns admitted=true. Otherwise it returns how long the caller should
// wait before retrying.
func (l *limiter) tryAcquire(now time.Time) (wait time.Duration, admitted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Backoff window after consecutive failures
	if l.failures > 0 {
		if remaining := l.backoff() - now.Sub(l.lastFailure); remaining > 0 {
			return remaining, false
		}
	}

	// Refill tokens based on elapsed time, capped at burst capacity
	elapsed := now.Sub(l.lastRefill)
	l.tokens = min(float64(l.cfg.BurstLimit), l.tokens+elapsed.Seconds()*l.refillRate())
	l.lastRefill = now

	// Prune sliding window to the trailing hour
	cutoff := now.Add(-time.Hour)
	for len(l.window) > 0 && l.window[0].Before(cutoff) {
		l.window = l.window[1:]
	}

	// Hourly cap: wait until the oldest admission ages out of the window
	if l.cfg.RequestsPerHour > 0 && len(l.window) >= l.cfg.RequestsPerHour {
		return l.window[0].Sub(cutoff), false
	}

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		l.window = append(l.window, now)
		return 0, true
	}

	// Time until the next token refills
	return time.Duration(float64(time.Second) / l.refillRate()), false
}

// acquire blocks until a token is available or the context is cancelled.
func (l *limiter) acquire(ctx context.Context) error {
	for {
		wait, admitted := l.tryAcquire(time.Now())
		if admitted {
			if l.cfg.Cooldown > 0 {
				return sleep(ctx, l.cfg.Cooldown)
			}
			return nil
		}
		if wait <= 0 {
			wait = time.Millisecond
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *limiter) recordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = 0
}

func (l *limiter) recordFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	l.lastFailure = time.Now()
}

// Status is a point-in-time snapshot of a service's limiter state.
type Status struct {
	Service             string        `json:"service"`
	AvailableTokens     int           `json:"available_tokens"`
	BurstLimit          int           `json:"burst_limit"`
	RequestsLastHour    int           `json:"requests_last_hour"`
	HourlyLimit         int           `json:"hourly_limit"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	InBackoff           bool          `json:"in_backoff"`
	BackoffRemaining    time.Duration `json:"backoff_remaining"`
}

func (l *limiter) status(name string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	l.tokens = min(float64(l.cfg.BurstLimit), l.tokens+elapsed.Seconds()*l.refillRate())
	l.lastRefill = now

	cutoff := now.Add(-time.Hour)
	for len(l.window) > 0 && l.window[0].Before(cutoff) {
		l.window = l.window[1:]
	}

	var remaining time.Duration
	if l.failures > 0 {
		remaining = l.backoff() - now.Sub(l.lastFailure)
		if remaining < 0 {
			remaining = 0
		}
	}

	return Status{
		Service:             name,
		AvailableTokens:     int(l.tokens),
		BurstLimit:          l.cfg.BurstLimit,
		RequestsLastHour:    len(l.window),
		HourlyLimit:         l.cfg.RequestsPerHour,
		ConsecutiveFailures: l.failures,
		InBackoff:           remaining > 0,
		BackoffRemaining:    remaining,
	}
}

// Registry manages one limiter per named external service.
// Limiters are created lazily on first use and live for the process lifetime.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*limiter
	configs  map[string]ServiceConfig
}

// NewRegistry creates a registry seeded with the default per-service configs.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*limiter),
		configs:  DefaultConfigs(),
	}
}

// Configure sets the config for a service. If a limiter already exists for the
// service it is replaced, resetting its state.
func (r *Registry) Configure(service string, cfg ServiceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[service] = cfg
	if _, exists := r.limiters[service]; exists {
		r.limiters[service] = newLimiter(cfg)
	}
}

// getLimiter gets or creates the limiter for a service.
func (r *Registry) getLimiter(service string) *limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, exists := r.limiters[service]; exists {
		return l
	}

	cfg, exists := r.configs[service]
	if !exists {
		cfg = DefaultServiceConfig()
	}
	l := newLimiter(cfg)
	r.limiters[service] = l
	return l
}

// Acquire blocks until the named service admits one call, or the context is
// cancelled. The governor only ever delays; the sole error it returns is the
// context's. Admission order among concurrent waiters is best effort.
func (r *Registry) Acquire(ctx context.Context, service string) error {
	return r.getLimiter(service).acquire(ctx)
}

// RecordSuccess resets the consecutive failure count for a service.
func (r *Registry) RecordSuccess(service string) {
	r.mu.Lock()
	l, exists := r.limiters[service]
	r.mu.Unlock()
	if exists {
		l.recordSuccess()
	}
}

// RecordFailure increments the consecutive failure count for a service,
// growing the backoff applied to subsequent acquisitions.
func (r *Registry) RecordFailure(service string) {
	r.mu.Lock()
	l, exists := r.limiters[service]
	r.mu.Unlock()
	if exists {
		l.recordFailure()
	}
}

// Status returns a snapshot for one service, creating its limiter if needed.
func (r *Registry) Status(service string) Status {
	return r.getLimiter(service).status(service)
}

// AllStatus returns snapshots for every service seen so far.
func (r *Registry) AllStatus() map[string]Status {
	r.mu.Lock()
	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	r.mu.Unlock()

	statuses := make(map[string]Status, len(names))
	for _, name := range names {
		statuses[name] = r.Status(name)
	}
	return statuses
}

// sleep waits for the given duration, returning early if ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
