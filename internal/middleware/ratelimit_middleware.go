package middleware

import (
	"net/http"
	"strconv"

	"pairchat/internal/redis"
	"pairchat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RoomRateLimitMiddleware limits room create/join attempts per user. Apply
// after auth middleware.
func RoomRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identity, ok := IdentityFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowRoomOp(c.Request.Context(), identity.UserID.String())
		if err != nil {
			// Redis being down never blocks room operations.
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
}
