package admin

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/auth"
	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

const (
	recentUsersLimit = 10
	activityLimit    = 5
	statsWindow      = 7 * 24 * time.Hour
)

// Store is the data the admin dashboard reads and clears. *Repository implements it.
type Store interface {
	Stats(ctx context.Context, since time.Time) (*Stats, error)
	RecentUsers(ctx context.Context, limit int) ([]RecentUser, error)
	Activity(ctx context.Context, limit int) (*Activity, error)
	ClearDemoData(ctx context.Context, keepUsername string) (Cleared, error)
}

// CredentialResetter rotates a user's password and queues the resend email.
type CredentialResetter interface {
	ResetCredentials(ctx context.Context, userID int64) (*auth.ContactResult, error)
}

// ResendRequest names the user whose credentials are re-sent.
type ResendRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// Handler serves /admin endpoints. Mount behind RequireRole(admin).
type Handler struct {
	store      Store
	resetter   CredentialResetter
	superAdmin string
	now        func() time.Time
	logger     *zap.Logger
}

// NewHandler creates an admin handler. superAdmin is the username ClearDemoData keeps.
func NewHandler(store Store, resetter CredentialResetter, superAdmin string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, resetter: resetter, superAdmin: superAdmin, now: time.Now, logger: logger}
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), h.now().Add(-statsWindow))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// RecentUsers handles GET /admin/recent-users.
func (h *Handler) RecentUsers(c *gin.Context) {
	users, err := h.store.RecentUsers(c.Request.Context(), recentUsersLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, users)
}

// Activity handles GET /admin/system-activity.
func (h *Handler) Activity(c *gin.Context) {
	act, err := h.store.Activity(c.Request.Context(), activityLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, act)
}

// ClearDemoData handles POST /admin/clear-demo-data.
func (h *Handler) ClearDemoData(c *gin.Context) {
	cleared, err := h.store.ClearDemoData(c.Request.Context(), h.superAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Warn("demo data cleared",
		zap.Int64("by_user_id", middleware.UserID(c)),
		zap.Any("deleted", cleared))
	response.OK(c, gin.H{"deleted_counts": cleared})
}

// ResendCredentials handles POST /admin/resend-email.
func (h *Handler) ResendCredentials(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.resetter.ResetCredentials(c.Request.Context(), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
