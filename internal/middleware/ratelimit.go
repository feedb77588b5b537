package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig bounds how many requests a client may make per window.
type RateLimitConfig struct {
	PerWindow int
	Window    time.Duration
}

// DefaultRateLimit allows 60 requests per minute per client IP.
var DefaultRateLimit = RateLimitConfig{PerWindow: 60, Window: time.Minute}

// RateLimitMiddleware implements a fixed-window per-IP rate limit backed by
// Redis, so the limit holds across API replicas. Counter keys roll over with
// the window and expire shortly after it.
func RateLimitMiddleware(rdb *redis.Client, cfg RateLimitConfig) fiber.Handler {
	if cfg.PerWindow <= 0 {
		cfg = DefaultRateLimit
	}

	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		now := time.Now()
		window := now.Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("rl:ip:%s:%d", c.IP(), window)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble should not take the API down; let the request through
			return c.Next()
		}
		rdb.Expire(ctx, key, cfg.Window+time.Second)

		resetAt := (window + 1) * int64(cfg.Window.Seconds())
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.PerWindow))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if count > int64(cfg.PerWindow) {
			retryAfter := resetAt - now.Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

			return c.Status(429).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests",
				"limit":       cfg.PerWindow,
				"retry_after": retryAfter,
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(int64(cfg.PerWindow)-count, 10))
		return c.Next()
	}
}
