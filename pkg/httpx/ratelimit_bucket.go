package httpx

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket limits each key with its own golang.org/x/time/rate bucket
// refilled at RequestsPerWindow/Window and holding up to Burst tokens.
type TokenBucket struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	limit    int
	now      func() time.Time
}

func NewTokenBucket(cfg RateLimitConfig) *TokenBucket {
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(cfg.RequestsPerWindow, 1)
	}
	return &TokenBucket{
		rate:  rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds()),
		burst: burst,
		limit: cfg.RequestsPerWindow,
		now:   time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (b *TokenBucket) WithClock(now func() time.Time) *TokenBucket {
	b.now = now
	return b
}

func (b *TokenBucket) getLimiter(key string) *rate.Limiter {
	if limiter, ok := b.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := b.limiters.LoadOrStore(key, rate.NewLimiter(b.rate, b.burst))
	return actual.(*rate.Limiter)
}

func (b *TokenBucket) Allow(_ context.Context, key string) (Decision, error) {
	now := b.now()
	limiter := b.getLimiter(key)

	if limiter.AllowN(now, 1) {
		return Decision{
			Allowed:   true,
			Limit:     b.limit,
			Remaining: int(limiter.TokensAt(now)),
		}, nil
	}

	// Reserve only to learn when the next token lands, then give it back.
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return Decision{
		Allowed:    false,
		Limit:      b.limit,
		Remaining:  0,
		RetryAfter: delay,
	}, nil
}

// Sweep removes limiters with full buckets; they carry no state.
func (b *TokenBucket) Sweep(now time.Time) int {
	removed := 0
	b.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).TokensAt(now) >= float64(b.burst) {
			b.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
