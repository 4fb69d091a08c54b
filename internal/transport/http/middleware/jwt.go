package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gopherai-kb/internal/pkg/jwtutil"
	"gopherai-kb/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthJWT admits only requests carrying a valid token of an approved user.
// Every rejection answers the same 401 so callers cannot tell the cases apart.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			unauthorized(c)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil || !claims.Approved {
			unauthorized(c)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	response.Error(c, 401, response.CodeUnauthorized, "unauthorized")
	c.Abort()
}
