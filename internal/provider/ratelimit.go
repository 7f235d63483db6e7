package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Default request ceilings per provider, tuned conservatively below each
// vendor's published per-app limits. Burst of 3 absorbs an identifier
// lookup's occasional double-hit (primary fetch + a title/artist fallback)
// without queuing the common case.
var defaultRateLimits = map[tbcore.ProviderId]rate.Limit{
	tbcore.AppleMusic: 5,
	tbcore.Spotify:     8,
	tbcore.Tidal:       5,
}

// RateLimiterMap holds one token-bucket limiter per provider, created once
// at startup and shared by every Aggregator goroutine that calls into that
// provider's adapter.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[tbcore.ProviderId]*rate.Limiter
}

// NewRateLimiterMap creates a limiter for every known provider using the
// package defaults.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[tbcore.ProviderId]*rate.Limiter, len(defaultRateLimits)),
	}
	for name, limit := range defaultRateLimits {
		m.limiters[name] = rate.NewLimiter(limit, 3)
	}
	return m
}

// Wait blocks until the limiter for the given provider admits a request, or
// ctx is canceled. Providers with no configured limiter pass through
// unthrottled.
func (m *RateLimiterMap) Wait(ctx context.Context, name tbcore.ProviderId) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
