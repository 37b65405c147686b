package events

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/groups"
	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	GroupID       int64   `json:"group_id" binding:"required"`
	Title         string  `json:"title" binding:"required"`
	Description   string  `json:"description"`
	EventType     string  `json:"event_type" binding:"required"`
	ScheduledDate *string `json:"scheduled_date"`
}

// DecisionRequest is the body for POST /events/:id/decision.
type DecisionRequest struct {
	OptionID int64 `json:"option_id" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an events handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid event id")
		return 0, false
	}
	return id, true
}

// Create handles POST /events. The creator must be a member of the group.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "group_id, title and event_type required")
		return
	}
	in := CreateEventInput{
		GroupID:     req.GroupID,
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
	}
	if req.ScheduledDate != nil && *req.ScheduledDate != "" {
		t, err := time.Parse(time.RFC3339, *req.ScheduledDate)
		if err != nil {
			response.BadRequest(c, "invalid scheduled_date")
			return
		}
		in.ScheduledDate = &t
	}
	e, err := h.svc.CreateEvent(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// ListByGroup handles GET /groups/:id/events. Mounted behind groups.RequireGroupMember.
func (h *Handler) ListByGroup(c *gin.Context) {
	groupID := c.MustGet(groups.ContextGroupID).(int64)
	list, err := h.svc.ListByGroup(c.Request.Context(), groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), eventID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// AddOption handles POST /events/:id/options.
func (h *Handler) AddOption(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}
	var req OptionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "option_type and title required")
		return
	}
	o, err := h.svc.AddOption(c.Request.Context(), eventID, middleware.UserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, o)
}

// RecordDecision handles POST /events/:id/decision.
func (h *Handler) RecordDecision(c *gin.Context) {
	eventID, ok := parseID(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "option_id required")
		return
	}
	e, err := h.svc.RecordDecision(c.Request.Context(), eventID, req.OptionID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}
