package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/hub"
	"go-bus-tracking/internal/infrastructure/logger"
	"go-bus-tracking/internal/infrastructure/store"
	"go-bus-tracking/internal/interfaces/rest/v1/handler"
	"go-bus-tracking/internal/interfaces/sse"
	"go-bus-tracking/internal/interfaces/websocket"
)

type routerDeps struct {
	hub        *hub.Hub
	store      *store.Store
	source     *store.CachedSource
	connOpts   hub.ConnectionOptions
	corsOrigin string
}

func InitRouter(deps routerDeps, log logger.Logger) http.Handler {
	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors(deps.corsOrigin))

	rootGroup := router.Group("")

	handler.InitRESTRouter(log, handler.Dependencies{
		Store:       deps.store,
		Notifier:    deps.hub,
		Hub:         deps.hub,
		Invalidator: deps.source,
	}, rootGroup)

	sse.InitSSERouter(log, deps.hub, deps.connOpts, rootGroup)
	websocket.InitWebSocketRouter(log, deps.hub, deps.connOpts, rootGroup)

	return router
}

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger writes one entry per request through the application
// logger.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithField("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logger.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case len(c.Errors) > 0:
			entry.Errorf("request failed: %s", c.Errors.String())
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request failed")
		default:
			entry.Debug("request served")
		}
	}
}
