package httpx

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nomadpay/authcore/pkg/idx"
)

// RedisSlidingWindow is a sliding-window log kept in a Redis sorted set per
// key, so every instance behind a load balancer shares one budget.
type RedisSlidingWindow struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisSlidingWindow(client redis.Cmdable, prefix string, cfg RateLimitConfig) *RedisSlidingWindow {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisSlidingWindow{
		client: client,
		prefix: prefix,
		limit:  max(cfg.RequestsPerWindow, 1),
		window: cfg.Window,
		now:    time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *RedisSlidingWindow) WithClock(now func() time.Time) *RedisSlidingWindow {
	l.now = now
	return l
}

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	redisKey := l.prefix + ":" + key
	nowMs := now.UnixMilli()
	cutoff := nowMs - l.window.Milliseconds()
	member := idx.NewAt(now).String()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{Score: float64(nowMs), Member: member})
	pipe.PExpire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: l.limit}, fmt.Errorf("redis limiter: %w", err)
	}

	count := int(card.Val())
	if count < l.limit {
		return Decision{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - count - 1,
		}, nil
	}

	// Rejected attempts do not occupy the window.
	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return Decision{Allowed: true, Limit: l.limit}, fmt.Errorf("redis limiter: %w", err)
	}

	retryAfter := l.window
	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err == nil && len(oldest) > 0 {
		retryAfter = time.Duration(int64(oldest[0].Score)+l.window.Milliseconds()-nowMs) * time.Millisecond
	}

	return Decision{
		Allowed:    false,
		Limit:      l.limit,
		Remaining:  0,
		RetryAfter: max(retryAfter, 0),
	}, nil
}
