package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	client *goredis.Client
	prefix string
	logger *slog.Logger
}

// NewRateLimiter creates a limiter whose keys live under prefix.
func NewRateLimiter(client *goredis.Client, prefix string, logger *slog.Logger) *RateLimiter {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RateLimiter{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "rate_limiter")),
	}
}

// Allow records one hit for key. When the window already holds limit hits it
// returns false and the time until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)
	k := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("rate limit check failed",
			slog.String("error", err.Error()),
			slog.String("key", k))
		return true, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	if incr.Val() > int64(limit) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = window
		}
		return false, retry, nil
	}
	return true, 0, nil
}
