package sse

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	hub    *hub.Hub
	opts   hub.ConnectionOptions
	logger logger.Logger
}

func NewServerSentEventHandler(
	hubInstance *hub.Hub,
	opts hub.ConnectionOptions,
	logger logger.Logger,
) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:    hubInstance,
		opts:   opts,
		logger: logger.WithField("handler", "sse"),
	}
}

// Connect opens an event stream. The client receives a connected event
// carrying its connection id, then the initial snapshot. The handler
// returns when the client goes away or the hub stops.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	connID := "sse-" + uuid.NewString()
	conn := hub.NewSSEConnection(c.Request.Context(), connID, c.Writer, h.opts, h.logger)

	// Queued ahead of registration so it precedes the initial snapshot.
	if err := conn.Send(c.Request.Context(), hub.ConnectedMessage(connID, time.Now())); err != nil {
		h.logger.Errorf("Failed to queue connected event: %v", err)
	}

	if err := h.hub.RegisterConnection(conn); err != nil {
		h.logger.Errorf("Failed to register connection: %v", err)
		_ = conn.Close()
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to register connection",
		})
		return
	}

	h.logger.Infof("SSE connection %s connected and registered", connID)
	conn.Serve()
	_ = h.hub.UnregisterConnection(connID)
	h.logger.Infof("SSE connection %s disconnected", connID)
}

// Subscribe adds a topic to an open SSE stream. Unknown topic types are
// accepted and ignored.
func (h *ServerSentEventHandler) Subscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.SubscribeRequest)
}

// Unsubscribe removes a topic from an open SSE stream.
func (h *ServerSentEventHandler) Unsubscribe(c *gin.Context) {
	h.changeSubscription(c, h.hub.UnsubscribeRequest)
}

func (h *ServerSentEventHandler) changeSubscription(
	c *gin.Context,
	apply func(connID string, req hub.SubscriptionRequest) (bool, error),
) {
	clientID := c.Param("clientId")

	var req hub.SubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid subscription format",
		})
		return
	}

	applied, err := apply(clientID, req)
	if errors.Is(err, hub.ErrConnectionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Client not connected",
		})
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to update subscriptions of %s: %v", clientID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update subscription",
		})
		return
	}
	if !applied {
		c.Status(http.StatusAccepted)
		return
	}

	topics, err := h.hub.Subscriptions(clientID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Client not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_id":     clientID,
		"subscriptions": topics,
	})
}

// GetConnections returns information about SSE connections
func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	connections := h.hub.GetConnectionsByType(hub.ConnectionTypeSSE)
	connectionInfo := make([]gin.H, len(connections))

	for i, conn := range connections {
		connectionInfo[i] = gin.H{
			"id":     conn.ID(),
			"type":   conn.Type(),
			"closed": conn.IsClosed(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connectionInfo,
		"hub_running":       h.hub.IsRunning(),
	})
}
