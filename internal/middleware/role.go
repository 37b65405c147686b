package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/apperrors"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/response"
)

// RequireRole lets through only callers whose token role is one of roles. Mount after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		v, ok := c.Get(ContextUserRole)
		if !ok {
			response.Error(c, apperrors.Unauthenticated("missing user context"))
			c.Abort()
			return
		}
		role, _ := v.(string)
		if !allowed[models.Role(role)] {
			response.Error(c, apperrors.Authorization("admin privileges required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
