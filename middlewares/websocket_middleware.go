package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/zedbites/backoffice/utils"
)

// WebSocketAuthMiddleware reads the token from the query string since browsers
// cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(tm *utils.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := tm.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("role", claims.Role)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
