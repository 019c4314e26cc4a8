// Package ratelimit provides redis-backed fixed-window rate limiting for
// abuse-prone endpoints (login, invoice email dispatch).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crownlab/crownlab/internal/config"
)

// Limiter answers whether one more event is allowed for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Registry hands out named limiters sharing one redis client. Without a
// configured redis address every limiter allows all traffic.
type Registry struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRegistry(cfg config.Config, log *zap.Logger) *Registry {
	registry := &Registry{log: log.Named("ratelimit")}
	if cfg.RedisAddr == "" {
		registry.log.Info("redis not configured, rate limiting disabled")
		return registry
	}
	registry.client = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return registry
}

// Limiter returns a fixed-window limiter named name allowing limit events
// per window.
func (r *Registry) Limiter(name string, limit int64, window time.Duration) Limiter {
	if r.client == nil {
		return noopLimiter{}
	}
	return &redisLimiter{
		client: r.client,
		name:   name,
		limit:  limit,
		window: window,
		log:    r.log.Named(name),
	}
}

type redisLimiter struct {
	client *redis.Client
	name   string
	limit  int64
	window time.Duration
	log    *zap.Logger
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open: a broken limiter must not take the API down.
		l.log.Warn("rate limit check failed", zap.Error(err))
		return true, nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			l.log.Warn("rate limit expire failed", zap.Error(err))
		}
	}
	return count <= l.limit, nil
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
