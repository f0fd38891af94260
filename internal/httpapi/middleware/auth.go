package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/viVeK21111/chatgpt-clone/internal/auth"
	"github.com/viVeK21111/chatgpt-clone/internal/common"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			common.Fail(c, http.StatusUnauthorized, 40100, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			common.Fail(c, http.StatusUnauthorized, 40100, "invalid authorization scheme")
			c.Abort()
			return
		}

		claims, err := auth.ParseJWT(strings.TrimSpace(strings.TrimPrefix(header, prefix)), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40100, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}
