package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID (int64) in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUsername is the key for the username in gin context.
	ContextUsername = "username"
)

// Identity is what a valid token resolves to.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

// IdentifyFunc resolves a bearer token to an Identity.
type IdentifyFunc func(token string) (Identity, error)

// JWT returns a middleware that validates the bearer token and sets user claims in context.
func JWT(identify IdentifyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		id, err := identify(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, id.UserID)
		c.Set(ContextUserRole, id.Role)
		c.Set(ContextUsername, id.Username)
		c.Next()
	}
}

// UserID returns the authenticated user's id. Only valid behind JWT.
func UserID(c *gin.Context) int64 {
	return c.MustGet(ContextUserID).(int64)
}
