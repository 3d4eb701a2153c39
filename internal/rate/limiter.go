// Package rate implementa limitadores fixed-window para los endpoints que
// reciben credenciales. Hay dos backends: Redis (compartido entre réplicas) y
// memoria (go-cache, por proceso).
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + PEXPIRE en la misma transacción).
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
	winEnd := winStart.Add(l.Window)

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// la clave muere con la ventana; repetir el PEXPIREAT es idempotente
	pipe.PExpireAt(ctx, redisKey, winEnd)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}
	return result(incr.Val(), l.Max, winEnd.Sub(now)), nil
}

// result arma el Result a partir de los hits de la ventana actual.
func result(hits, max int64, left time.Duration) Result {
	if left <= 0 {
		left = time.Second
	}
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   left,
	}
	if !res.Allowed {
		// Retry after: resto de la ventana, redondeado hacia arriba
		res.RetryAfter = left.Round(time.Second)
		if res.RetryAfter < left {
			res.RetryAfter += time.Second
		}
	}
	return res
}
