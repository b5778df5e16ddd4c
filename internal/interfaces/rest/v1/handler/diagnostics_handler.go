package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
)

type HubInspector interface {
	IsRunning() bool
	ConnectionCount() int
	TopicCount() int
	Subscriptions(connID string) ([]hub.Topic, error)
	SubscriberCount(topic hub.Topic) int
}

type DiagnosticsHandler struct {
	hub    HubInspector
	logger logger.Logger
}

func NewDiagnosticsHandler(inspector HubInspector, logger logger.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		hub:    inspector,
		logger: logger.WithField("handler", "diagnostics"),
	}
}

// Health reports liveness. It answers 503 while the hub is stopped.
func (h *DiagnosticsHandler) Health(c *gin.Context) {
	if !h.hub.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *DiagnosticsHandler) HubStatus(c *gin.Context) {
	isRunning := h.hub.IsRunning()
	h.logger.Debugf(
		"Hub status check - Running: %v, Connections: %d",
		isRunning,
		h.hub.ConnectionCount(),
	)
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"hub_running": isRunning,
		"connections": h.hub.ConnectionCount(),
		"topics":      h.hub.TopicCount(),
	})
}

// Subscriptions lists the topics of one connection.
func (h *DiagnosticsHandler) Subscriptions(c *gin.Context) {
	connID := c.Param("id")
	topics, err := h.hub.Subscriptions(connID)
	if errors.Is(err, hub.ErrConnectionNotFound) {
		respondError(c, http.StatusNotFound, "Connection not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"connectionId":  connID,
		"subscriptions": topics,
	}, "")
}

// TopicSubscribers reports how many connections belong to a topic given by
// name, e.g. bus:BUS001 or all_trips.
func (h *DiagnosticsHandler) TopicSubscribers(c *gin.Context) {
	topic, ok := hub.ParseTopicName(c.Param("name"))
	if !ok {
		respondError(c, http.StatusBadRequest, "Unknown topic")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"topic":       topic,
		"subscribers": h.hub.SubscriberCount(topic),
	}, "")
}
