// Package admission caps how fast and how many backend calls may be in flight,
// shared by every worker of a run (and, with Redis, by every process).
package admission

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/yungbote/neurobridge-labgen/internal/platform/httpx"
)

type Limiter interface {
	// Acquire blocks until the call may proceed or ctx is done. The returned
	// release must be called exactly once when the call finishes.
	Acquire(ctx context.Context) (release func(), err error)
}

type Config struct {
	RatePerSecond float64
	Burst         int
	MaxInFlight   int
}

// Unlimited admits everything immediately.
type Unlimited struct{}

func (Unlimited) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

// LocalLimiter is a token bucket plus an in-flight cap for a single process.
type LocalLimiter struct {
	rl  *rate.Limiter
	sem *semaphore.Weighted
}

func NewLocal(cfg Config) *LocalLimiter {
	l := &LocalLimiter{}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		l.rl = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	if cfg.MaxInFlight > 0 {
		l.sem = semaphore.NewWeighted(int64(cfg.MaxInFlight))
	}
	return l
}

func (l *LocalLimiter) Acquire(ctx context.Context) (func(), error) {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	if l.rl != nil {
		if err := l.rl.Wait(ctx); err != nil {
			if l.sem != nil {
				l.sem.Release(1)
			}
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		if l.sem != nil {
			l.sem.Release(1)
		}
		return nil, err
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		if l.sem != nil {
			l.sem.Release(1)
		}
	}, nil
}

type windowCounter interface {
	Incr(ctx context.Context, key string) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
}

// RedisLimiter admits calls in fixed windows shared by all processes using the
// key prefix, never more than RatePerSecond on average. Rates below 1/s widen
// the window instead of rounding up. The in-flight cap stays process-local.
type RedisLimiter struct {
	rdb    windowCounter
	prefix string
	limit  int64
	window int64 // seconds
	local  *LocalLimiter
	now    func() time.Time
}

func NewRedis(rdb windowCounter, keyPrefix string, cfg Config) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, fmt.Errorf("admission: redis client required")
	}
	if cfg.RatePerSecond <= 0 {
		return nil, fmt.Errorf("admission: redis mode requires rate_per_second > 0")
	}
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = "labgen:admission"
	}
	window, limit := redisWindow(cfg.RatePerSecond)
	return &RedisLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		local:  NewLocal(Config{MaxInFlight: cfg.MaxInFlight}),
		now:    time.Now,
	}, nil
}

// redisWindow picks the window length in seconds and the admissions allowed
// per window so that limit/window never exceeds rate.
func redisWindow(rate float64) (window, limit int64) {
	window = 1
	if rate < 1 {
		window = int64(math.Ceil(1 / rate))
	}
	limit = int64(math.Floor(rate * float64(window)))
	if limit < 1 {
		limit = 1
	}
	return window, limit
}

func (l *RedisLimiter) Acquire(ctx context.Context) (func(), error) {
	release, err := l.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	for {
		now := l.now()
		window := now.Unix() / l.window
		key := fmt.Sprintf("%s:%d", l.prefix, window)
		n, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			release()
			return nil, fmt.Errorf("admission: redis incr: %w", err)
		}
		if n == 1 {
			_ = l.rdb.Expire(ctx, key, time.Duration(2*l.window)*time.Second).Err()
		}
		if n <= l.limit {
			return release, nil
		}
		next := time.Unix((window+1)*l.window, 0)
		if err := httpx.SleepContext(ctx, next.Sub(now)); err != nil {
			release()
			return nil, err
		}
	}
}
