package handler

import (
	"net/http"
	"strconv"

	"github.com/aerocharter/service-flightpath/internal/application"
	"github.com/aerocharter/service-flightpath/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const geoJSONContentType = "application/geo+json"

// ItineraryHandler handles HTTP requests for itineraries and their map routes.
type ItineraryHandler struct {
	service *application.RouteMapService
}

// NewItineraryHandler creates a new ItineraryHandler.
func NewItineraryHandler(service *application.RouteMapService) *ItineraryHandler {
	return &ItineraryHandler{service: service}
}

// RegisterRoutes registers all itinerary routes on the given router group.
func (h *ItineraryHandler) RegisterRoutes(r *gin.RouterGroup) {
	itineraries := r.Group("/api/v1/itineraries")
	{
		itineraries.POST("", h.RegisterItinerary)
		itineraries.GET("/:id", h.GetItinerary)
		itineraries.GET("/ref/:reference", h.GetItineraryByReference)
		itineraries.POST("/:id/cancel", h.CancelItinerary)
		itineraries.POST("/:id/archive", h.ArchiveItinerary)
		itineraries.GET("/:id/routes", h.ItineraryRoutes)
		itineraries.GET("/:id/legs/:seq/route", h.LegRoute)
		itineraries.GET("/:id/geojson", h.ItineraryGeoJSON)
	}

	r.POST("/api/v1/routes/preview", h.PreviewRoute)
}

// RegisterItinerary handles POST /api/v1/itineraries.
func (h *ItineraryHandler) RegisterItinerary(c *gin.Context) {
	var req application.RegisterItineraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RegisterItinerary(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetItinerary handles GET /api/v1/itineraries/:id.
func (h *ItineraryHandler) GetItinerary(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}

	result, err := h.service.GetItinerary(c.Request.Context(), itineraryID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetItineraryByReference handles GET /api/v1/itineraries/ref/:reference.
func (h *ItineraryHandler) GetItineraryByReference(c *gin.Context) {
	result, err := h.service.GetItineraryByReference(c.Request.Context(), c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelItinerary handles POST /api/v1/itineraries/:id/cancel.
func (h *ItineraryHandler) CancelItinerary(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}

	var req application.CancelItineraryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.CancelItinerary(c.Request.Context(), itineraryID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ArchiveItinerary handles POST /api/v1/itineraries/:id/archive.
func (h *ItineraryHandler) ArchiveItinerary(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}

	result, err := h.service.ArchiveItinerary(c.Request.Context(), itineraryID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ItineraryRoutes handles GET /api/v1/itineraries/:id/routes.
func (h *ItineraryHandler) ItineraryRoutes(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}
	pathReq, ok := parsePathRequest(c)
	if !ok {
		return
	}

	result, err := h.service.BuildItineraryRoutes(c.Request.Context(), itineraryID, pathReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// LegRoute handles GET /api/v1/itineraries/:id/legs/:seq/route.
func (h *ItineraryHandler) LegRoute(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}
	sequence, err := strconv.Atoi(c.Param("seq"))
	if err != nil {
		response.BadRequest(c, "invalid leg sequence")
		return
	}
	pathReq, ok := parsePathRequest(c)
	if !ok {
		return
	}

	result, err := h.service.BuildLegRoute(c.Request.Context(), itineraryID, sequence, pathReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ItineraryGeoJSON handles GET /api/v1/itineraries/:id/geojson. The body is a
// bare FeatureCollection so map clients can load it directly.
func (h *ItineraryHandler) ItineraryGeoJSON(c *gin.Context) {
	itineraryID, ok := parseItineraryID(c)
	if !ok {
		return
	}
	pathReq, ok := parsePathRequest(c)
	if !ok {
		return
	}

	fc, err := h.service.ItineraryFeatureCollection(c.Request.Context(), itineraryID, pathReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := fc.MarshalJSON()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, geoJSONContentType, body)
}

// PreviewRoute handles POST /api/v1/routes/preview.
func (h *ItineraryHandler) PreviewRoute(c *gin.Context) {
	var req application.PreviewRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PreviewRoute(req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func parseItineraryID(c *gin.Context) (uuid.UUID, bool) {
	itineraryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid itinerary ID")
		return uuid.Nil, false
	}
	return itineraryID, true
}

// parsePathRequest reads the optional steps and curve_ratio query parameters.
// Range checks are left to the service.
func parsePathRequest(c *gin.Context) (application.PathRequest, bool) {
	var req application.PathRequest

	if raw := c.Query("steps"); raw != "" {
		steps, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "steps must be an integer")
			return req, false
		}
		req.Steps = &steps
	}

	if raw := c.Query("curve_ratio"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "curve_ratio must be a number")
			return req, false
		}
		req.CurveRatio = &ratio
	}

	return req, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
