// Package ratelimit throttles requests per caller key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter reports whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// idleTTL is how long an unused per-key bucket is kept.
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a process-local token bucket per key.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewMemory allows perMinute requests per key per minute, bursting up to perMinute.
func NewMemory(perMinute int) *Memory {
	return &Memory{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		m.sweep(now)
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// sweep drops idle buckets. Called with mu held.
func (m *Memory) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(m.buckets, k)
		}
	}
}

var _ Limiter = (*Memory)(nil)
