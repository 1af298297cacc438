// Package ratelimit implements a redis sliding-window limiter shared by every API replica.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Limit struct {
	Window  time.Duration
	MaxHits int
}

// SlidingWindow admits at most Limit.MaxHits calls per identifier within any Window.
type SlidingWindow struct {
	redis redis.Cmdable
	name  string
	limit Limit
	now   func() time.Time
}

func NewSlidingWindow(client redis.Cmdable, name string, limit Limit) *SlidingWindow {
	return &SlidingWindow{
		redis: client,
		name:  name,
		limit: limit,
		now:   time.Now,
	}
}

func (l *SlidingWindow) key(identifier string) string {
	return fmt.Sprintf("rate_limit:%s:%s", l.name, identifier)
}

// Allow records a hit for identifier and reports whether it is within the limit.
func (l *SlidingWindow) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.key(identifier)

	pipe := l.redis.Pipeline()
	now := l.now()
	windowStart := now.Add(-l.limit.Window).UnixMilli()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, l.limit.Window*2)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("redis pipeline error: %w", err)
	}

	// ZCard ran before this hit was added.
	count := results[1].(*redis.IntCmd).Val()
	return count < int64(l.limit.MaxHits), nil
}

// Reset forgets every hit of identifier.
func (l *SlidingWindow) Reset(ctx context.Context, identifier string) error {
	return l.redis.Del(ctx, l.key(identifier)).Err()
}
