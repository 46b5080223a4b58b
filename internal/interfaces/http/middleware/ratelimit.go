package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taketurn/taketurn/internal/infrastructure/ratelimit"
	"github.com/taketurn/taketurn/internal/shared/logger"
	"github.com/taketurn/taketurn/internal/shared/utils"
)

// RateLimit enforces limiter per client IP. Requests are let through when
// the limiter itself fails so a Redis outage never blocks turn traffic.
func RateLimit(limiter ratelimit.Limiter, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		ctx := c.Request.Context()

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			log.Warnw("rate limiter unavailable, allowing request",
				"client_ip", c.ClientIP(),
				"error", err)
			c.Next()
			return
		}

		if remaining, err := limiter.Remaining(ctx, key); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
