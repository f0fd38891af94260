package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/store/redisstore"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (redisstore.Decision, error)
}

// RateLimit throttles per user, or per client IP before authentication.
// A nil limiter disables it; limiter errors let the request through.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if uid := c.GetString(UserIDKey); uid != "" {
			key = "user:" + uid
		}

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Printf("[RateLimit] limiter unavailable, allowing key=%s err=%v", key, err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(d.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Next()
	}
}
