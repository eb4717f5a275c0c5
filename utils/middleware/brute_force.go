package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/studyhub-api/utils/cache"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/response"
)

// attemptWindow bounds how long failed attempts are remembered
const attemptWindow = 15 * time.Minute

// lockoutSteps are checked top-down; the first threshold reached wins
var lockoutSteps = []struct {
	attempts int64
	lock     time.Duration
}{
	{25, 24 * time.Hour},
	{10, time.Hour},
	{5, 2 * time.Minute},
}

// BruteForceProtection applies progressive per-IP login lockouts using Redis
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{
		redisCache: redisCache,
	}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// CheckAndRecordAttempt rejects requests from locked-out IPs
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := lockKey(c.IP())

		locked, err := b.redisCache.Exists(c.Context(), key)
		if err != nil {
			// Redis outages must not lock everyone out
			logger.Logger.Warn().Err(err).Msg("brute force check skipped")
			return c.Next()
		}

		if locked {
			ttl, _ := b.redisCache.TTL(c.Context(), key)
			retryAfter := int(ttl.Seconds())
			if retryAfter < 0 {
				retryAfter = 60
			}

			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
		}

		return c.Next()
	}
}

// RecordFailedAttempt counts a failure and locks the IP once a step is reached
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx, ip string) error {
	ctx := c.Context()

	attempts, err := b.redisCache.Increment(ctx, attemptKey(ip))
	if err != nil {
		return nil
	}
	if attempts == 1 {
		_ = b.redisCache.Expire(ctx, attemptKey(ip), attemptWindow)
	}

	for _, step := range lockoutSteps {
		if attempts >= step.attempts {
			logger.Logger.Warn().Str("ip", ip).Int64("attempts", attempts).Dur("lock", step.lock).Msg("login locked out")
			return b.redisCache.Set(ctx, lockKey(ip), "locked", step.lock)
		}
	}
	return nil
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx, ip string) error {
	return b.redisCache.Delete(c.Context(), attemptKey(ip), lockKey(ip))
}
