package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilinks-dev/ilinks/internal/types"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Limiter is a fixed-window request counter kept in redis. A nil *Limiter
// allows everything, which is how rate limiting is switched off.
type Limiter struct {
	client *redis.Client
	log    *logrus.Logger
	cb     *gobreaker.CircuitBreaker
	limit  int
	window time.Duration
}

// NewRedisLimiter connects to addr and returns nil when redis cannot be
// reached after a few attempts.
func NewRedisLimiter(addr string, limit int, window time.Duration, log *logrus.Logger) *Limiter {
	if addr == "" || limit <= 0 {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()

		if err == nil {
			log.Infof("connected to redis at %s", addr)
			return NewLimiter(rdb, limit, window, log)
		}

		if i == maxRetries-1 {
			log.Warnf("failed to connect to redis after %d retries: %v, rate limiter disabled", maxRetries, err)
			rdb.Close()
			return nil
		}

		time.Sleep(time.Duration(1<<i) * 250 * time.Millisecond)
	}

	return nil
}

func NewLimiter(client *redis.Client, limit int, window time.Duration, log *logrus.Logger) *Limiter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-rate-limit",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})

	return &Limiter{
		client: client,
		log:    log,
		cb:     cb,
		limit:  limit,
		window: window,
	}
}

// Allow counts one hit against key in the current window. The counter and
// its TTL are read in one MULTI; a key found without a TTL gets one, so a
// failed EXPIRE is repaired by the next hit instead of pinning the key.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return true, nil
	}

	result, err := l.cb.Execute(func() (interface{}, error) {
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)

		_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			return nil, err
		}

		if ttl.Val() < 0 {
			if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
				return nil, err
			}
		}

		return incr.Val(), nil
	})

	if err != nil {
		return true, err
	}

	return result.(int64) <= int64(l.limit), nil
}

// Middleware limits requests per client IP under scope. Redis failures fail
// open.
func (l *Limiter) Middleware(scope string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if l == nil {
			ctx.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, ctx.ClientIP())
		allowed, err := l.Allow(ctx.Request.Context(), key)

		if err != nil {
			l.log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable, allowing request")
		}

		if !allowed {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Code:  types.CodeRateLimited,
				Error: "Too many requests, try again later",
			})
			return
		}

		ctx.Next()
	}
}
