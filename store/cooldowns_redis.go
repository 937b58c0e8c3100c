package store

import (
	"context"
	"errors"
	"fmt"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"time"
)

// RedisCooldowns is a Cooldowns implementation backed by Redis, so that cooldown
// state survives restarts and can be shared between bot instances
type RedisCooldowns struct {
	rdb   *redis.Client
	clock clockwork.Clock
}

// NewRedisCooldowns connects to Redis and verifies the connection with a ping
func NewRedisCooldowns(ctx context.Context, redisURL string, clock clockwork.Clock) (*RedisCooldowns, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	return &RedisCooldowns{rdb: rdb, clock: clock}, nil
}

func (s *RedisCooldowns) IsOnCooldown(ctx context.Context, channel string, fullname string, window time.Duration) (bool, error) {
	since, err := s.timeSinceLast(ctx, channel, fullname)
	if err != nil {
		return false, err
	}
	if since < 0 {
		return false, nil
	}
	return since < window, nil
}

func (s *RedisCooldowns) TimeSinceLast(ctx context.Context, channel string, fullname string) (time.Duration, error) {
	since, err := s.timeSinceLast(ctx, channel, fullname)
	if err != nil || since < 0 {
		return 0, err
	}
	return since, nil
}

func (s *RedisCooldowns) RecordExecution(ctx context.Context, channel string, fullname string) error {
	return s.rdb.Set(ctx, cooldownKey(channel, fullname), s.clock.Now().UnixMilli(), 0).Err()
}

// timeSinceLast returns a negative duration if no execution was ever recorded
func (s *RedisCooldowns) timeSinceLast(ctx context.Context, channel string, fullname string) (time.Duration, error) {
	millis, err := s.rdb.Get(ctx, cooldownKey(channel, fullname)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return 0, err
	}
	return s.clock.Since(time.UnixMilli(millis)), nil
}

// Close releases the underlying Redis client
func (s *RedisCooldowns) Close() error {
	return s.rdb.Close()
}
