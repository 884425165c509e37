package httpx

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxTrackedKeys caps how many keys a SlidingWindow tracks. Past the
// cap, expired keys are swept first and then the least recently seen key is
// forgotten.
const DefaultMaxTrackedKeys = 10_000

// SlidingWindow is an in-process sliding-window log: a key may make at most
// RequestsPerWindow requests in any trailing Window.
type SlidingWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	maxKeys int
	hits    map[string][]time.Time
	now     func() time.Time
}

func NewSlidingWindow(cfg RateLimitConfig) *SlidingWindow {
	return &SlidingWindow{
		limit:   max(cfg.RequestsPerWindow, 1),
		window:  cfg.Window,
		maxKeys: DefaultMaxTrackedKeys,
		hits:    make(map[string][]time.Time),
		now:     time.Now,
	}
}

// WithMaxKeys overrides DefaultMaxTrackedKeys.
func (l *SlidingWindow) WithMaxKeys(n int) *SlidingWindow {
	l.maxKeys = max(n, 1)
	return l
}

// WithClock replaces the time source. Intended for tests.
func (l *SlidingWindow) WithClock(now func() time.Time) *SlidingWindow {
	l.now = now
	return l
}

func (l *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := prune(l.hits[key], now.Add(-l.window))

	if len(hits) >= l.limit {
		l.hits[key] = hits
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: hits[0].Add(l.window).Sub(now),
		}, nil
	}

	if _, tracked := l.hits[key]; !tracked && len(l.hits) >= l.maxKeys {
		if l.sweepLocked(now) == 0 {
			l.evictStalestLocked()
		}
	}

	hits = append(hits, now)
	l.hits[key] = hits

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(hits),
	}, nil
}

func (l *SlidingWindow) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(now)
}

func (l *SlidingWindow) sweepLocked(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0
	for key, hits := range l.hits {
		hits = prune(hits, cutoff)
		if len(hits) == 0 {
			delete(l.hits, key)
			removed++
			continue
		}
		l.hits[key] = hits
	}
	return removed
}

// evictStalestLocked forgets the key whose latest hit is oldest. That key
// starts over with a clean history.
func (l *SlidingWindow) evictStalestLocked() {
	var (
		stalest string
		oldest  time.Time
		found   bool
	)
	for key, hits := range l.hits {
		last := hits[len(hits)-1]
		if !found || last.Before(oldest) {
			stalest, oldest, found = key, last, true
		}
	}
	if found {
		delete(l.hits, stalest)
	}
}

// prune drops the timestamps at or before cutoff. hits is ordered oldest first.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
