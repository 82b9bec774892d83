package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a fixed-window counter shared by every instance using the same Redis.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisFromURL connects to redisURL and verifies the connection.
func NewRedisFromURL(ctx context.Context, redisURL string, perMinute int) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedis(client, perMinute), nil
}

func NewRedis(client *redis.Client, perMinute int) *Redis {
	return &Redis{
		client: client,
		limit:  int64(perMinute),
		window: time.Minute,
		prefix: "ratelimit:auth:",
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	window := r.now().Unix() / int64(r.window.Seconds())
	k := fmt.Sprintf("%s%s:%d", r.prefix, key, window)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= r.limit, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Limiter = (*Redis)(nil)
