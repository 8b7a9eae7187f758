// Package loginlimit throttles repeated failed sign-ins per identifier using
// fixed-window Redis counters.
package loginlimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTooManyAttempts  = errors.New("too many failed attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "policonsole:login:"

// Limiter is consulted before and after each sign-in attempt.
type Limiter interface {
	// Check returns ErrTooManyAttempts while the identifier is locked out.
	Check(ctx context.Context, identifier string) error
	// Fail records a failed attempt.
	Fail(ctx context.Context, identifier string) error
	// Reset clears the counter after a successful sign-in.
	Reset(ctx context.Context, identifier string) error
}

// Config tunes the limiter. MaxAttempts <= 0 disables throttling.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// RedisLimiter keeps one counter per identifier. The first failure in a window
// sets the key's TTL to Cooldown; the window is not extended by later hits.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{redis: client, config: cfg}
}

// New returns a Redis limiter for addr, or a no-op limiter when addr is empty.
func New(addr string, cfg Config) Limiter {
	if strings.TrimSpace(addr) == "" || cfg.MaxAttempts <= 0 {
		return Nop{}
	}
	return NewRedisLimiter(redis.NewClient(&redis.Options{Addr: addr}), cfg)
}

func (l *RedisLimiter) Check(ctx context.Context, identifier string) error {
	if l.config.MaxAttempts <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, key(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrTooManyAttempts
	}
	return nil
}

func (l *RedisLimiter) Fail(ctx context.Context, identifier string) error {
	k := key(identifier)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Close releases the Redis client.
func (l *RedisLimiter) Close() error {
	return l.redis.Close()
}

// Nop never throttles.
type Nop struct{}

func (Nop) Check(context.Context, string) error { return nil }
func (Nop) Fail(context.Context, string) error  { return nil }
func (Nop) Reset(context.Context, string) error { return nil }

func key(identifier string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identifier))
}
