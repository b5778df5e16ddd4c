package sse

import (
	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
)

func InitSSERouter(
	logger logger.Logger,
	hubInstance *hub.Hub,
	opts hub.ConnectionOptions,
	rg *gin.RouterGroup,
) {
	sseHandler := NewServerSentEventHandler(hubInstance, opts, logger)

	// SSE connection endpoint
	sseGroup := rg.Group("/sse")
	sseGroup.GET("", sseHandler.Connect)

	// Subscription and diagnostics API endpoints
	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
	apiGroup.POST("/:clientId/subscribe", sseHandler.Subscribe)
	apiGroup.POST("/:clientId/unsubscribe", sseHandler.Unsubscribe)
}
