package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

const counterTimeout = 250 * time.Millisecond

// RateCounterStore holds limiter windows; *redis.Client satisfies it.
type RateCounterStore interface {
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	Counters(ctx context.Context, keys ...string) ([]int64, error)
	RateLimitKey(scope string) string
}

// redisCounter is an httprate.LimitCounter over RateCounterStore. Store
// failures are logged and the request is let through.
type redisCounter struct {
	policy string
	store  RateCounterStore
	logg   *logger.Logger
	window time.Duration
}

func newRedisCounter(policy string, store RateCounterStore, logg *logger.Logger) *redisCounter {
	return &redisCounter{policy: policy, store: store, logg: logg, window: time.Minute}
}

func (c *redisCounter) Config(_ int, windowLength time.Duration) {
	c.window = windowLength
}

func (c *redisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *redisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), counterTimeout)
	defer cancel()
	// Kept for two windows so it can still be read as the previous one.
	if _, err := c.store.IncrBy(ctx, c.windowKey(key, currentWindow), int64(amount), 2*c.window); err != nil {
		c.failOpen(ctx, err)
	}
	return nil
}

func (c *redisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), counterTimeout)
	defer cancel()
	counts, err := c.store.Counters(ctx, c.windowKey(key, currentWindow), c.windowKey(key, previousWindow))
	if err != nil {
		c.failOpen(ctx, err)
		return 0, 0, nil
	}
	return int(counts[0]), int(counts[1]), nil
}

func (c *redisCounter) windowKey(key string, window time.Time) string {
	return c.store.RateLimitKey(c.policy + ":" + key + ":" + strconv.FormatInt(window.Unix(), 10))
}

func (c *redisCounter) failOpen(ctx context.Context, err error) {
	if c.logg != nil {
		c.logg.Error(c.logg.WithField(ctx, "policy", c.policy), "rate_limit.store_unavailable", err)
	}
}
