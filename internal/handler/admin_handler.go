package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aerocharter/service-flightpath/internal/application"
	"github.com/aerocharter/service-flightpath/internal/platform/response"
)

// AdminItineraryHandler handles back-office HTTP requests for itinerary management.
type AdminItineraryHandler struct {
	service *application.RouteMapService
}

// NewAdminItineraryHandler creates a new AdminItineraryHandler.
func NewAdminItineraryHandler(service *application.RouteMapService) *AdminItineraryHandler {
	return &AdminItineraryHandler{service: service}
}

// RegisterRoutes registers admin itinerary routes.
func (h *AdminItineraryHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/itineraries", h.ListItineraries)
		admin.GET("/stats/itineraries", h.ItineraryStats)
	}
}

// ListItineraries handles GET /api/v1/admin/itineraries.
func (h *AdminItineraryHandler) ListItineraries(c *gin.Context) {
	page, limit := parsePagination(c)

	itineraries, total, err := h.service.ListItineraries(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, itineraries, total, page, limit)
}

// ItineraryStats handles GET /api/v1/admin/stats/itineraries.
func (h *AdminItineraryHandler) ItineraryStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
