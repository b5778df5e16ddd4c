package websocket

import (
	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// InitWebSocketRouter initializes WebSocket routes
func InitWebSocketRouter(
	logger logger.Logger,
	hubInstance *hub.Hub,
	opts hub.ConnectionOptions,
	rg *gin.RouterGroup,
) {
	wsHandler := NewWebSocketHandler(hubInstance, opts, logger)

	// WebSocket connection endpoint
	wsGroup := rg.Group("/ws")
	wsGroup.GET("", wsHandler.Connect)

	// WebSocket API endpoints (connection info only)
	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
