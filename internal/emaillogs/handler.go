package emaillogs

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/response"
)

// recentLimit is how many logs the admin view shows.
const recentLimit = 50

// Overview is the admin email view.
type Overview struct {
	Stats  *Stats             `json:"stats"`
	Recent []*models.EmailLog `json:"recent"`
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/email-logs. Mount behind RequireRole(admin).
func (h *Handler) List(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context(), time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}
	recent, err := h.repo.Recent(c.Request.Context(), recentLimit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, Overview{Stats: stats, Recent: recent})
}
