package polls

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/middleware"
	"github.com/planmyoutings/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/polls.
type CreateRequest struct {
	Question string `json:"question" binding:"required"`
	PollType string `json:"poll_type"`
}

// VoteRequest is the body for POST /polls/:id/vote.
type VoteRequest struct {
	OptionID int64 `json:"option_id" binding:"required"`
	Value    *int  `json:"value"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a polls handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// Create handles POST /events/:id/polls (group members).
func (h *Handler) Create(c *gin.Context) {
	eventID, ok := parseID(c, "event")
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "question required")
		return
	}
	p, err := h.svc.CreatePoll(c.Request.Context(), eventID, middleware.UserID(c), req.Question, req.PollType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Vote handles POST /polls/:id/vote. A second vote in the same poll returns 409 duplicate_vote.
func (h *Handler) Vote(c *gin.Context) {
	pollID, ok := parseID(c, "poll")
	if !ok {
		return
	}
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "option_id required")
		return
	}
	update, err := h.svc.CastVote(c.Request.Context(), pollID, req.OptionID, middleware.UserID(c), req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, update)
}

// Results handles GET /polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	pollID, ok := parseID(c, "poll")
	if !ok {
		return
	}
	res, err := h.svc.Results(c.Request.Context(), pollID, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
