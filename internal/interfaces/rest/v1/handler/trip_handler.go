package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/domain/transit"
	"go-bus-tracking/internal/infrastructure/logger"
)

type ScheduleRequest struct {
	PlannedStart time.Time `json:"plannedStartTime" binding:"required"`
	PlannedEnd   time.Time `json:"plannedEndTime" binding:"required,gtfield=PlannedStart"`
}

type TripRequest struct {
	RouteID  string             `json:"routeId" binding:"required"`
	BusID    string             `json:"busId" binding:"required"`
	DriverID string             `json:"driverId" binding:"required"`
	Schedule ScheduleRequest    `json:"schedule"`
	Status   transit.TripStatus `json:"status" binding:"omitempty,oneof=scheduled boarding departed in_transit arrived completed cancelled delayed"`
}

type LocationBody struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
}

// ProgressRequest reports trip progress. The percentage is clamped rather
// than rejected.
type ProgressRequest struct {
	Percentage      *float64      `json:"percentage"`
	CurrentStop     string        `json:"currentStop"`
	NextStop        string        `json:"nextStop"`
	CurrentLocation *LocationBody `json:"currentLocation"`
}

type IncidentRequest struct {
	Type        transit.IncidentType `json:"type" binding:"required,oneof=breakdown traffic weather accident other"`
	Description string               `json:"description" binding:"max=500"`
	Severity    transit.Severity     `json:"severity" binding:"omitempty,oneof=low medium high critical"`
	Location    *LocationBody        `json:"location"`
}

type TripHandler struct {
	store       Store
	notifier    Notifier
	invalidator Invalidator
	logger      logger.Logger
	now         func() time.Time
}

func NewTripHandler(store Store, notifier Notifier, invalidator Invalidator, logger logger.Logger) *TripHandler {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &TripHandler{
		store:       store,
		notifier:    notifier,
		invalidator: invalidator,
		logger:      logger.WithField("handler", "trip"),
		now:         time.Now,
	}
}

func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.store.ListTrips(c.Request.Context(), transit.TripStatus(c.Query("status")))
	if err != nil {
		h.logger.Errorf("Failed to list trips: %v", err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(trips), "data": trips})
}

// ListActiveTrips returns trips that are boarding, departed or in transit.
func (h *TripHandler) ListActiveTrips(c *gin.Context) {
	trips, err := h.store.ListActiveTrips(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list active trips: %v", err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(trips), "data": trips})
}

func (h *TripHandler) Stats(c *gin.Context) {
	stats, err := h.store.TripStats(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to compute trip stats: %v", err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	respondOK(c, http.StatusOK, stats, "")
}

// ListByRouteAndDate handles GET /trips/route/:routeId/date/:date where date
// is YYYY-MM-DD in UTC.
func (h *TripHandler) ListByRouteAndDate(c *gin.Context) {
	date, err := time.Parse(time.DateOnly, c.Param("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return
	}
	trips, err := h.store.ListTripsByRouteAndDate(c.Request.Context(), c.Param("routeId"), date)
	if err != nil {
		h.logger.Errorf("Failed to list trips by route and date: %v", err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(trips), "data": trips})
}

func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.store.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Trip not found")
		return
	}
	respondOK(c, http.StatusOK, trip, "")
}

// PutTrip creates or replaces the trip named in the path, keeping the
// progress of an existing trip.
func (h *TripHandler) PutTrip(c *gin.Context) {
	var req TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	tripID := c.Param("id")

	trip, err := h.store.GetTrip(ctx, tripID)
	status := http.StatusOK
	if err != nil {
		if !isNotFound(err) {
			respondStoreError(c, err, "Trip not found")
			return
		}
		trip = &transit.Trip{TripID: tripID, Status: transit.TripStatusScheduled}
		status = http.StatusCreated
	}

	trip.RouteID = req.RouteID
	trip.BusID = req.BusID
	trip.DriverID = req.DriverID
	trip.Schedule.PlannedStart = req.Schedule.PlannedStart
	trip.Schedule.PlannedEnd = req.Schedule.PlannedEnd
	if req.Status != "" {
		trip.Status = req.Status
	}

	if err := h.store.PutTrip(ctx, trip); err != nil {
		h.logger.Errorf("Failed to save trip %s: %v", tripID, err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	h.invalidator.Invalidate()
	respondOK(c, status, trip, "Trip saved successfully")
}

func (h *TripHandler) DeleteTrip(c *gin.Context) {
	tripID := c.Param("id")
	if err := h.store.DeleteTrip(c.Request.Context(), tripID); err != nil {
		respondStoreError(c, err, "Trip not found")
		return
	}
	h.invalidator.Invalidate()
	respondOK(c, http.StatusOK, gin.H{"tripId": tripID}, "Trip deleted successfully")
}

// UpdateProgress stores a progress report and pushes it to subscribers of
// the trip and of all_trips.
func (h *TripHandler) UpdateProgress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	update := transit.ProgressUpdate{
		Percentage:  req.Percentage,
		CurrentStop: req.CurrentStop,
		NextStop:    req.NextStop,
	}
	if req.CurrentLocation != nil {
		update.CurrentLocation = &transit.Location{
			Latitude:  req.CurrentLocation.Latitude,
			Longitude: req.CurrentLocation.Longitude,
		}
	}

	trip, err := h.store.UpdateTripProgress(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondStoreError(c, err, "Trip not found")
		return
	}
	h.invalidator.Invalidate()

	h.notifier.NotifyTripProgress(trip.TripID, trip.Progress)

	respondOK(c, http.StatusOK, trip, "Trip progress updated successfully")
}

// AddIncident records an incident on the trip. A severe incident delays
// the trip.
func (h *TripHandler) AddIncident(c *gin.Context) {
	var req IncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	incident := transit.Incident{
		Type:        req.Type,
		Description: req.Description,
		Severity:    req.Severity,
	}
	if req.Location != nil {
		incident.Location = &transit.Location{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
		}
	}

	trip, err := h.store.AddTripIncident(c.Request.Context(), c.Param("id"), incident)
	if err != nil {
		respondStoreError(c, err, "Trip not found")
		return
	}
	h.invalidator.Invalidate()
	respondOK(c, http.StatusOK, trip, "Incident added successfully")
}

// CompleteTrip marks the trip completed at 100% and records the actual end
// time.
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	ctx := c.Request.Context()
	trip, err := h.store.GetTrip(ctx, c.Param("id"))
	if err != nil {
		respondStoreError(c, err, "Trip not found")
		return
	}
	if trip.Status == transit.TripStatusCompleted {
		respondError(c, http.StatusConflict, "Trip is already completed")
		return
	}

	now := h.now()
	trip.Status = transit.TripStatusCompleted
	trip.Progress.Percentage = 100
	trip.Schedule.ActualEnd = &now

	if err := h.store.PutTrip(ctx, trip); err != nil {
		h.logger.Errorf("Failed to complete trip %s: %v", trip.TripID, err)
		respondStoreError(c, err, "Trip not found")
		return
	}
	h.invalidator.Invalidate()

	h.notifier.NotifyTripProgress(trip.TripID, trip.Progress)

	respondOK(c, http.StatusOK, trip, "Trip completed successfully")
}
