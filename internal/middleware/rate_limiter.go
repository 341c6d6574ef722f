package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
	BlockTime   time.Duration // How long to block after exceeding limit
}

// Limiter decides whether the client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimit rejects over-limit clients with 429. Limiter errors fail open.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortWithError(c, http.StatusTooManyRequests, apperror.CodeRateLimited,
				"too many requests, please try again later")
			return
		}

		c.Next()
	}
}

// RedisLimiter is a fixed-window counter shared by every instance using the
// same Redis. A client that exceeds the window is blocked for BlockTime.
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRedisLimiter(redisClient *redis.Client, config RateLimiterConfig) *RedisLimiter {
	return &RedisLimiter{
		redis:  redisClient,
		config: config,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	blockKey := fmt.Sprintf("ratelimit:block:%s", key)
	counterKey := fmt.Sprintf("ratelimit:%s", key)

	blockedFor, err := rl.redis.TTL(ctx, blockKey).Result()
	if err != nil {
		return false, 0, err
	}
	if blockedFor > 0 {
		return false, blockedFor, nil
	}

	// INCR then EXPIRE on the first hit of a window
	count, err := rl.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := rl.redis.Expire(ctx, counterKey, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count <= int64(rl.config.MaxRequests) {
		return true, 0, nil
	}

	if rl.config.BlockTime > 0 {
		if err := rl.redis.Set(ctx, blockKey, 1, rl.config.BlockTime).Err(); err != nil {
			return false, 0, err
		}
		return false, rl.config.BlockTime, nil
	}

	ttl, err := rl.redis.TTL(ctx, counterKey).Result()
	if err != nil || ttl <= 0 {
		ttl = rl.config.Window
	}
	return false, ttl, nil
}

// LocalLimiter is an in-process token bucket per key, used when no Redis
// is configured. Buckets idle for longer than staleAfter are dropped.
type LocalLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	staleAfter time.Duration
	buckets    map[string]*bucket
	lastSweep  time.Time
	now        func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(config RateLimiterConfig) *LocalLimiter {
	burst := config.MaxRequests
	if burst < 1 {
		burst = 1
	}
	window := config.Window
	if window <= 0 {
		window = time.Minute
	}

	return &LocalLimiter{
		limit:      rate.Limit(float64(burst) / window.Seconds()),
		burst:      burst,
		staleAfter: 2 * window,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0, nil
	}

	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay, nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.staleAfter {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.staleAfter {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
