package groups

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

// CreateGroupRequest is the body for POST /groups.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// AddMemberRequest is the body for POST /groups/:id/members.
type AddMemberRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"`
}

// SendMessageRequest is the body for POST /groups/:id/messages.
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// Handler handles group HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a groups handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+param)
		return 0, false
	}
	return id, true
}

// List handles GET /groups. Returns groups the current user belongs to.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /groups. The creator becomes the group admin.
func (h *Handler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	g, err := h.svc.CreateGroup(c.Request.Context(), middleware.UserID(c), req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

// Get handles GET /groups/:id.
func (h *Handler) Get(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), groupID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Delete handles DELETE /groups/:id (group admins).
func (h *Handler) Delete(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteGroup(c.Request.Context(), groupID, middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// AddMember handles POST /groups/:id/members (group admins).
func (h *Handler) AddMember(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username required")
		return
	}
	m, err := h.svc.AddMember(c.Request.Context(), groupID, middleware.UserID(c), req.Username, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// RemoveMember handles DELETE /groups/:id/members/:user_id.
func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), groupID, middleware.UserID(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"removed": true})
}

// SendMessage handles POST /groups/:id/messages. The message is relayed, not stored.
func (h *Handler) SendMessage(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "message required")
		return
	}
	if err := h.svc.SendMessage(c.Request.Context(), groupID, middleware.UserID(c), req.Message); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"sent": true})
}
