package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/herdbook/paycore/internal/cache"
	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/logger"
)

// CheckoutRateLimit 结账接口按客户端IP限流（Redis 固定窗口计数）
//
// Redis 不可用时放行：限流是防滥用手段，不能把支付入口跟着拖垮。
func CheckoutRateLimit(client *redis.Client, prefix string, cfg config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := int64(cfg.MaxRequests)
	if maxRequests <= 0 {
		maxRequests = 10
	}

	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := cache.Key(prefix, "ratelimit", "checkout", c.ClientIP())
		ctx := c.Request.Context()
		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warnw("rate_limit_unavailable", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, window)
		}
		if count > maxRequests {
			logger.Warnw("checkout_rate_limited",
				"client_ip", c.ClientIP(),
				"count", count,
			)
			response.TooManyRequests(c, fmt.Sprintf("rate limit exceeded, retry after %s", window))
			c.Abort()
			return
		}
		c.Next()
	}
}
