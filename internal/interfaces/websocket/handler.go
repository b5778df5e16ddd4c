package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
)

// WebSocketHandler handles WebSocket connections and messages
type WebSocketHandler struct {
	hub      *hub.Hub
	opts     hub.ConnectionOptions
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler instance
func NewWebSocketHandler(
	hubInstance *hub.Hub,
	opts hub.ConnectionOptions,
	logger logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hubInstance,
		opts:   opts,
		logger: logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin; subscriptions are unauthenticated.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect upgrades the request and registers the socket with the hub.
// Subscribe and unsubscribe frames from the client are applied by the hub.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	connID := "ws-" + uuid.NewString()
	wsConn := hub.NewWebSocketConnection(connID, conn, h.opts, h.hub.HandleClientMessage, h.logger)

	if err := wsConn.Send(wsConn.Context(), hub.ConnectedMessage(connID, time.Now())); err != nil {
		h.logger.Errorf("Failed to queue connected event: %v", err)
	}

	if err := h.hub.RegisterConnection(wsConn); err != nil {
		h.logger.Errorf("Failed to register WebSocket connection: %v", err)
		_ = wsConn.Close()
		return
	}
	wsConn.Listen()

	h.logger.Infof("WebSocket connection %s connected and registered", connID)

	// Keep the connection alive until client disconnects
	<-wsConn.Context().Done()
	h.logger.Infof("WebSocket connection %s disconnected", connID)
}

// GetConnections returns information about WebSocket connections
func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	connections := h.hub.GetConnectionsByType(hub.ConnectionTypeWebSocket)
	connectionInfo := make([]gin.H, len(connections))

	for i, conn := range connections {
		info := gin.H{
			"id":     conn.ID(),
			"type":   conn.Type(),
			"closed": conn.IsClosed(),
		}
		if topics, err := h.hub.Subscriptions(conn.ID()); err == nil {
			info["subscriptions"] = topics
		}
		connectionInfo[i] = info
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connectionInfo,
		"hub_running":       h.hub.IsRunning(),
	})
}
