package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

type StopRequest struct {
	Name     string       `json:"name" binding:"required,min=2,max=100"`
	Location LocationBody `json:"location"`
	Order    int          `json:"order" binding:"gte=0"`
}

type RouteRequest struct {
	Name              string        `json:"name" binding:"required,min=2,max=100"`
	Origin            string        `json:"origin" binding:"required"`
	Destination       string        `json:"destination" binding:"required"`
	DistanceKm        float64       `json:"distanceKm" binding:"gte=0"`
	EstimatedDuration int           `json:"estimatedDurationMinutes" binding:"gte=0"`
	Stops             []StopRequest `json:"stops" binding:"omitempty,dive"`
	Active            *bool         `json:"active"`
}

type RouteHandler struct {
	store  Store
	logger logger.Logger
}

func NewRouteHandler(store Store, logger logger.Logger) *RouteHandler {
	return &RouteHandler{
		store:  store,
		logger: logger.WithField("handler", "route"),
	}
}

func (h *RouteHandler) ListRoutes(c *gin.Context) {
	routes, err := h.store.ListRoutes(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list routes: %v", err)
		respondStoreError(c, err, "Route not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(routes), "data": routes})
}

// RoutesNear handles GET /routes/near, matching on the first and last
// stop. maxDistance defaults to 10000 meters.
func (h *RouteHandler) RoutesNear(c *gin.Context) {
	loc, maxMeters, ok := bindNear(c, 10000)
	if !ok {
		return
	}
	routes, err := h.store.ListRoutesNear(c.Request.Context(), loc, maxMeters)
	if err != nil {
		h.logger.Errorf("Failed to find routes near %v: %v", loc, err)
		respondStoreError(c, err, "Route not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(routes), "data": routes})
}

func (h *RouteHandler) Stats(c *gin.Context) {
	stats, err := h.store.RouteStats(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to compute route stats: %v", err)
		respondStoreError(c, err, "Route not found")
		return
	}
	respondOK(c, http.StatusOK, stats, "")
}

func (h *RouteHandler) GetRoute(c *gin.Context) {
	route, err := h.store.GetRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Route not found")
		return
	}
	respondOK(c, http.StatusOK, route, "")
}

func (h *RouteHandler) PutRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	routeID := c.Param("id")

	status := http.StatusOK
	if _, err := h.store.GetRoute(ctx, routeID); err != nil {
		if !isNotFound(err) {
			respondStoreError(c, err, "Route not found")
			return
		}
		status = http.StatusCreated
	}

	route := &transit.Route{
		RouteID:           routeID,
		Name:              req.Name,
		Origin:            req.Origin,
		Destination:       req.Destination,
		DistanceKm:        req.DistanceKm,
		EstimatedDuration: req.EstimatedDuration,
		Active:            req.Active == nil || *req.Active,
	}
	for _, s := range req.Stops {
		route.Stops = append(route.Stops, transit.Stop{
			Name:     s.Name,
			Location: transit.Location{Latitude: s.Location.Latitude, Longitude: s.Location.Longitude},
			Order:    s.Order,
		})
	}

	if err := h.store.PutRoute(ctx, route); err != nil {
		h.logger.Errorf("Failed to save route %s: %v", routeID, err)
		respondStoreError(c, err, "Route not found")
		return
	}
	respondOK(c, status, route, "Route saved successfully")
}

func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	routeID := c.Param("id")
	if err := h.store.DeleteRoute(c.Request.Context(), routeID); err != nil {
		respondStoreError(c, err, "Route not found")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"routeId": routeID}, "Route deleted successfully")
}
