package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corpsite/backend/internal/monitoring"
	"corpsite/backend/internal/storage"
)

// RateLimiter 基于固定窗口计数的按 IP 限流
type RateLimiter struct {
	repo    storage.RateLimitRepository
	limit   int64
	window  time.Duration
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewRateLimiter 创建限流中间件，metrics 可以为 nil
func NewRateLimiter(repo storage.RateLimitRepository, limit int, window time.Duration, metrics *monitoring.Metrics, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		repo:    repo,
		limit:   int64(limit),
		window:  window,
		metrics: metrics,
		log:     log,
	}
}

// Limit 返回限流处理器，name 用来区分不同的计数器
func (rl *RateLimiter) Limit(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + name + ":" + c.ClientIP()

		count, err := rl.repo.IncrementRateLimit(c.Request.Context(), key, rl.window)
		if err != nil {
			// 计数器不可用时放行
			rl.log.Warn("Rate limit check failed", zap.String("limit", name), zap.Error(err))
			c.Next()
			return
		}

		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > rl.limit {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(name)
			}
			rl.log.Warn("Rate limit exceeded",
				zap.String("limit", name),
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			abortJSON(c, http.StatusTooManyRequests, "too many requests, please try again later")
			return
		}

		c.Next()
	}
}
