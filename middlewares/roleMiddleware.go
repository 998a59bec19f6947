package middlewares

import (
	"net/http"

	"citycare-be/models"

	"github.com/gin-gonic/gin"
)

// RequireRole aborts with 403 unless the authenticated actor holds one of
// roles. It must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "User not authenticated"})
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Access denied. Insufficient permission."})
	}
}
