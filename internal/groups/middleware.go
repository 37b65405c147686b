package groups

import (
	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

// Context keys set by RequireGroupMember.
const (
	ContextGroupID   = "group_id"
	ContextGroupRole = "group_role"
)

// RequireGroupMember validates that the user belongs to the group named by the :id path parameter
// and stores the group id and the user's role on the context. Call after JWT.
func RequireGroupMember(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := parseID(c, "id")
		if !ok {
			c.Abort()
			return
		}
		role, err := svc.RequireMember(c.Request.Context(), groupID, middleware.UserID(c))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextGroupID, groupID)
		c.Set(ContextGroupRole, role)
		c.Next()
	}
}
