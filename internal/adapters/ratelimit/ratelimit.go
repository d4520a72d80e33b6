// Package ratelimit provides the per-key request limiter injected into the
// HTTP layer.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default limiter configuration constants.
const (
	defaultRequests = 10
	defaultWindow   = time.Minute
	defaultIdleTTL  = time.Hour
	pruneInterval   = 5 * time.Minute
)

// Store decides whether a request for key may proceed.
type Store interface {
	Allow(ctx context.Context, key string) bool
}

// Unlimited allows every request.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(context.Context, string) bool { return true }

// Option applies a configuration option to the LimiterStore.
type Option func(*LimiterStore)

// WithLimit allows requests per window for each key, refilled evenly across
// the window.
func WithLimit(requests int, window time.Duration) Option {
	return func(s *LimiterStore) {
		if requests > 0 && window > 0 {
			s.requests = requests
			s.window = window
		}
	}
}

// WithIdleTTL sets how long an unused key is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *LimiterStore) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *LimiterStore) {
		if now != nil {
			s.now = now
		}
	}
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LimiterStore keeps one token bucket per key.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*entry
	requests int
	window   time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

// New creates a LimiterStore with configuration options.
func New(opts ...Option) *LimiterStore {
	s := &LimiterStore{
		limiters: make(map[string]*entry),
		requests: defaultRequests,
		window:   defaultWindow,
		idleTTL:  defaultIdleTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow consumes one token from key's bucket.
func (s *LimiterStore) Allow(ctx context.Context, key string) bool {
	now := s.now()

	s.mu.Lock()
	e, ok := s.limiters[key]
	if !ok {
		every := s.window / time.Duration(s.requests)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), s.requests)}
		s.limiters[key] = e
	}
	e.lastAccess = now
	limiter := e.limiter
	s.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (s *LimiterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Prune drops keys idle for longer than the TTL and returns how many were removed.
func (s *LimiterStore) Prune() int {
	threshold := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.limiters {
		if e.lastAccess.Before(threshold) {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// Run prunes idle keys periodically until ctx is canceled.
func (s *LimiterStore) Run(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}
