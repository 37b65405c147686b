package enrichment

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/pkg/response"
)

// Handler exposes the lookups over HTTP.
type Handler struct {
	client *Client
}

// NewHandler creates an enrichment handler.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// SearchPlaces handles GET /places/search?query=&location=.
func (h *Handler) SearchPlaces(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.BadRequest(c, "query required")
		return
	}
	response.OK(c, h.client.SearchPlaces(c.Request.Context(), query, strings.TrimSpace(c.Query("location"))))
}

// SearchMovies handles GET /movies/search?query=.
func (h *Handler) SearchMovies(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.BadRequest(c, "query required")
		return
	}
	response.OK(c, h.client.SearchMovies(c.Request.Context(), query))
}

// Forecast handles GET /weather/forecast?lat=&lon=.
func (h *Handler) Forecast(c *gin.Context) {
	lat, lon := c.Query("lat"), c.Query("lon")
	if _, err := strconv.ParseFloat(lat, 64); err != nil {
		response.BadRequest(c, "lat must be a number")
		return
	}
	if _, err := strconv.ParseFloat(lon, 64); err != nil {
		response.BadRequest(c, "lon must be a number")
		return
	}
	response.OK(c, h.client.Forecast(c.Request.Context(), lat, lon))
}
