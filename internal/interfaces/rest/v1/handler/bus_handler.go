package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

type OperatorRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

type VehicleRequest struct {
	Make     string   `json:"make" binding:"required,min=2,max=50"`
	Model    string   `json:"model" binding:"required,min=2,max=50"`
	Year     int      `json:"year" binding:"required,gte=1990"`
	Capacity int      `json:"capacity" binding:"required,min=1,max=100"`
	Features []string `json:"features" binding:"omitempty,dive,oneof=ac wifi usb_charging gps_tracking cctv wheelchair_accessible"`
}

type BusRequest struct {
	RegistrationNumber string            `json:"registrationNumber" binding:"required,min=3,max=20"`
	RouteID            string            `json:"routeId" binding:"required"`
	Status             transit.BusStatus `json:"status" binding:"omitempty,oneof=active inactive maintenance offline"`
	Operator           OperatorRequest   `json:"operator"`
	Vehicle            VehicleRequest    `json:"vehicleInfo"`
	CurrentTripID      string            `json:"currentTripId"`
}

// LocationRequest is a position report. Direction is accepted as an alias
// of heading.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Speed     *float64 `json:"speed" binding:"omitempty,gte=0,lte=200"`
	Heading   *float64 `json:"heading" binding:"omitempty,gte=0,lte=360"`
	Direction *float64 `json:"direction" binding:"omitempty,gte=0,lte=360"`
}

// NearQuery selects entities within MaxDistance meters of a point.
type NearQuery struct {
	Latitude    *float64 `form:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude   *float64 `form:"longitude" binding:"required,gte=-180,lte=180"`
	MaxDistance float64  `form:"maxDistance" binding:"omitempty,gt=0"`
}

// bindNear parses a NearQuery, answering 400 itself on failure.
func bindNear(c *gin.Context, defaultMeters float64) (transit.Location, float64, bool) {
	var q NearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "Latitude and longitude are required: "+err.Error())
		return transit.Location{}, 0, false
	}
	if q.MaxDistance == 0 {
		q.MaxDistance = defaultMeters
	}
	return transit.Location{Latitude: *q.Latitude, Longitude: *q.Longitude}, q.MaxDistance, true
}

type BusHandler struct {
	store       Store
	notifier    Notifier
	invalidator Invalidator
	logger      logger.Logger
}

func NewBusHandler(store Store, notifier Notifier, invalidator Invalidator, logger logger.Logger) *BusHandler {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &BusHandler{
		store:       store,
		notifier:    notifier,
		invalidator: invalidator,
		logger:      logger.WithField("handler", "bus"),
	}
}

// ListBuses handles GET /buses with an optional ?status= filter.
func (h *BusHandler) ListBuses(c *gin.Context) {
	status := transit.BusStatus(c.Query("status"))
	buses, err := h.store.ListBuses(c.Request.Context(), status)
	if err != nil {
		h.logger.Errorf("Failed to list buses: %v", err)
		respondStoreError(c, err, "Bus not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(buses), "data": buses})
}

// BusesNear handles GET /buses/near. Only active buses are returned,
// nearest first. maxDistance defaults to 1000 meters.
func (h *BusHandler) BusesNear(c *gin.Context) {
	loc, maxMeters, ok := bindNear(c, 1000)
	if !ok {
		return
	}
	buses, err := h.store.ListBusesNear(c.Request.Context(), loc, maxMeters)
	if err != nil {
		h.logger.Errorf("Failed to find buses near %v: %v", loc, err)
		respondStoreError(c, err, "Bus not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(buses), "data": buses})
}

func (h *BusHandler) Stats(c *gin.Context) {
	stats, err := h.store.BusStats(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to compute bus stats: %v", err)
		respondStoreError(c, err, "Bus not found")
		return
	}
	respondOK(c, http.StatusOK, stats, "")
}

func (h *BusHandler) GetBus(c *gin.Context) {
	bus, err := h.store.GetBus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Bus not found")
		return
	}
	respondOK(c, http.StatusOK, bus, "")
}

// PutBus creates or replaces the bus named in the path. Location, speed
// and history of an existing bus are preserved.
func (h *BusHandler) PutBus(c *gin.Context) {
	var req BusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	busID := c.Param("id")

	bus, err := h.store.GetBus(ctx, busID)
	status := http.StatusOK
	if err != nil {
		if !isNotFound(err) {
			respondStoreError(c, err, "Bus not found")
			return
		}
		bus = &transit.Bus{BusID: busID, Current: transit.BusState{Status: transit.BusStatusActive}}
		status = http.StatusCreated
	}

	bus.RegistrationNumber = strings.ToUpper(strings.TrimSpace(req.RegistrationNumber))
	bus.RouteID = req.RouteID
	bus.CurrentTripID = req.CurrentTripID
	bus.Operator = transit.Operator(req.Operator)
	bus.Vehicle = transit.VehicleInfo(req.Vehicle)
	if req.Status != "" {
		bus.Current.Status = req.Status
	}

	if err := h.store.PutBus(ctx, bus); err != nil {
		h.logger.Errorf("Failed to save bus %s: %v", busID, err)
		respondStoreError(c, err, "Bus not found")
		return
	}
	h.invalidator.Invalidate()
	respondOK(c, status, bus, "Bus saved successfully")
}

func (h *BusHandler) DeleteBus(c *gin.Context) {
	busID := c.Param("id")
	if err := h.store.DeleteBus(c.Request.Context(), busID); err != nil {
		respondStoreError(c, err, "Bus not found")
		return
	}
	h.invalidator.Invalidate()
	respondOK(c, http.StatusOK, gin.H{"busId": busID}, "Bus deleted successfully")
}

// UpdateLocation stores a position report and pushes it to subscribers
// of the bus and of all_buses.
func (h *BusHandler) UpdateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	heading := req.Heading
	if heading == nil {
		heading = req.Direction
	}
	update := transit.LocationUpdate{
		Location: transit.Location{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Speed:    req.Speed,
		Heading:  heading,
	}

	busID := c.Param("id")
	bus, err := h.store.UpdateBusLocation(c.Request.Context(), busID, update)
	if err != nil {
		respondStoreError(c, err, "Bus not found")
		return
	}
	h.invalidator.Invalidate()

	h.notifier.NotifyBusLocation(bus.BusID, bus.Current.Location, bus.Current.Speed, bus.Current.Heading)

	respondOK(c, http.StatusOK, gin.H{
		"busId":    bus.BusID,
		"location": bus.Current.Location,
		"status":   bus.Current.Status,
	}, "Bus location updated successfully")
}

// LocationHistory returns the most recent samples, newest last. ?limit=
// caps the count.
func (h *BusHandler) LocationHistory(c *gin.Context) {
	bus, err := h.store.GetBus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Bus not found")
		return
	}

	history := bus.LocationHistory
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(history) {
			history = history[len(history)-limit:]
		}
	}
	if history == nil {
		history = []transit.LocationSample{}
	}

	respondOK(c, http.StatusOK, gin.H{
		"busId":   bus.BusID,
		"history": history,
	}, "")
}

// CurrentTrip returns the trip the bus is running, if any.
func (h *BusHandler) CurrentTrip(c *gin.Context) {
	ctx := c.Request.Context()
	bus, err := h.store.GetBus(ctx, c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Bus not found")
		return
	}
	if bus.CurrentTripID == "" {
		respondError(c, http.StatusNotFound, "No active trip found for this bus")
		return
	}

	trip, err := h.store.GetTrip(ctx, bus.CurrentTripID)
	if err != nil {
		respondStoreError(c, err, "No active trip found for this bus")
		return
	}
	respondOK(c, http.StatusOK, trip, "")
}
