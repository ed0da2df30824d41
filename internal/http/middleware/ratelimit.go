package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Counter increments a fixed-window counter and returns the new count.
type Counter interface {
	Hit(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter is a Counter over INCR + EXPIRE in one pipeline.
type RedisCounter struct {
	Redis *redis.Client
}

func (r RedisCounter) Hit(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.Redis.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}

// RateLimitConfig config for the per-IP limiter.
type RateLimitConfig struct {
	Counter        Counter
	RPS            int           // requests per window; <= 0 disables
	KeyPrefix      string        // e.g. "rl:ip:"
	Window         time.Duration // usually 1s
	RetryAfterHint bool          // set Retry-After header when limited
	Now            func() time.Time
}

// RateLimitMiddleware applies a fixed-window limit per client IP.
// Counter errors let the request through.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.RPS <= 0 || cfg.Counter == nil {
				// no limit configured or redis missing (dev): allow
				return next(c)
			}

			// fixed-window key: rl:ip:{ip}:{window index}
			now := cfg.Now()
			bucket := now.UnixNano() / int64(cfg.Window)
			key := cfg.KeyPrefix + c.RealIP() + ":" + strconv.FormatInt(bucket, 10)

			cnt, err := cfg.Counter.Hit(c.Request().Context(), key, cfg.Window*2)
			if err != nil {
				c.Logger().Warnf("rate limit counter: %v", err)
				return next(c)
			}

			if cnt > int64(cfg.RPS) {
				if cfg.RetryAfterHint {
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					secs := int((remain + time.Second - 1) / time.Second)
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
			}
			return next(c)
		}
	}
}
