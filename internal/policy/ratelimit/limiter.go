// Package ratelimit implements per-domain token bucket pacing for source
// site etiquette. Chapter fetches within one extraction are sequential, so
// the bucket rate is the effective inter-request delay policy.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quillworks/novelforge/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	// DomainRPS is the sustained request rate per source domain. Zero or
	// negative disables pacing.
	DomainRPS float64
	// DomainBurst is the bucket size; it defaults to 1.
	DomainBurst int
	// MinDelay is a floor applied between consecutive requests to the same
	// domain regardless of bucket state.
	MinDelay time.Duration
}

// Limiter manages per-domain rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	lastRequest  map[string]time.Time
	defaultRate  rate.Limit
	defaultBurst int
	minDelay     time.Duration
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DomainRPS)
	if cfg.DomainRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DomainBurst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		lastRequest:  make(map[string]time.Time),
		defaultRate:  r,
		defaultBurst: burst,
		minDelay:     cfg.MinDelay,
	}
}

// Wait blocks until a token is available for the URL's domain, respecting
// the context.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}

	l.mu.Lock()
	limiter, exists := l.limiters[domain]
	if !exists {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[domain] = limiter
	}
	floor := time.Duration(0)
	if l.minDelay > 0 {
		if last, ok := l.lastRequest[domain]; ok {
			if elapsed := time.Since(last); elapsed < l.minDelay {
				floor = l.minDelay - elapsed
			}
		}
	}
	l.mu.Unlock()

	if floor > 0 {
		timer := time.NewTimer(floor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		case <-timer.C:
		}
	}

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start) + floor; waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(domain, waited)
	}

	l.mu.Lock()
	l.lastRequest[domain] = time.Now()
	l.mu.Unlock()
	return nil
}
