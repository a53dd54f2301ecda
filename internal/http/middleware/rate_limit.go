package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration. Booking links land in
// customer inboxes, so the limiter has to tolerate mail scanners prefetching
// redirects while still keeping a single IP from hammering confirmation.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultRateLimitConfig covers redirects and page loads.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      time.Minute,
		KeyPrefix:   "ratelimit:web",
	}
}

// ConfirmRateLimitConfig is the stricter budget for the confirmation
// endpoint; a human books at most a handful of meetings per minute.
func ConfirmRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 10,
		Window:      time.Minute,
		KeyPrefix:   "ratelimit:confirm",
	}
}

// RateLimit creates a Redis-backed fixed-window limiter keyed by client IP.
func RateLimit(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		ctx := c.Context()
		key := config.KeyPrefix + ":" + c.IP()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// Fail open: a Redis outage must not block booking clicks.
			logger.Error("rate limit redis error", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			redisClient.Expire(ctx, key, config.Window)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, config.MaxRequests-int(count))))

		if count > int64(config.MaxRequests) {
			c.Set("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "For mange forespørsler, prøv igjen om litt",
			})
		}

		return c.Next()
	}
}
