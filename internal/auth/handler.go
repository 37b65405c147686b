package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

// LoginRequest is the body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Login handles POST /api/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password required")
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Contact handles POST /api/contact. Stores the enquiry and returns generated credentials.
func (h *Handler) Contact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Contact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("account created from enquiry", zap.Int64("user_id", res.User.ID), zap.String("username", res.Username))
	response.Created(c, res)
}

// Me handles GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	u, err := h.svc.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}
