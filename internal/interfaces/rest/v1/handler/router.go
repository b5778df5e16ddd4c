package handler

import (
	"github.com/gin-gonic/gin"

	"go-bus-tracking/internal/infrastructure/logger"
)

type Dependencies struct {
	Store       Store
	Notifier    Notifier
	Hub         HubInspector
	Invalidator Invalidator
}

// InitRESTRouter registers the /api/v1 resources and the health endpoints
// on rg.
func InitRESTRouter(logger logger.Logger, deps Dependencies, rg *gin.RouterGroup) {
	busHandler := NewBusHandler(deps.Store, deps.Notifier, deps.Invalidator, logger)
	tripHandler := NewTripHandler(deps.Store, deps.Notifier, deps.Invalidator, logger)
	routeHandler := NewRouteHandler(deps.Store, logger)
	alertHandler := NewAlertHandler(deps.Notifier, logger)
	diagnostics := NewDiagnosticsHandler(deps.Hub, logger)

	rg.GET("/health", diagnostics.Health)
	rg.GET("/hub/status", diagnostics.HubStatus)

	v1 := rg.Group("/api/v1")

	buses := v1.Group("/buses")
	{
		buses.GET("", busHandler.ListBuses)
		buses.GET("/stats", busHandler.Stats)
		buses.GET("/near", busHandler.BusesNear)
		buses.GET("/:id", busHandler.GetBus)
		buses.GET("/:id/history", busHandler.LocationHistory)
		buses.GET("/:id/trip", busHandler.CurrentTrip)
		buses.PUT("/:id", busHandler.PutBus)
		buses.DELETE("/:id", busHandler.DeleteBus)
		buses.POST("/:id/location", busHandler.UpdateLocation)
	}

	trips := v1.Group("/trips")
	{
		trips.GET("", tripHandler.ListTrips)
		trips.GET("/active", tripHandler.ListActiveTrips)
		trips.GET("/stats", tripHandler.Stats)
		trips.GET("/route/:routeId/date/:date", tripHandler.ListByRouteAndDate)
		trips.GET("/:id", tripHandler.GetTrip)
		trips.PUT("/:id", tripHandler.PutTrip)
		trips.DELETE("/:id", tripHandler.DeleteTrip)
		trips.POST("/:id/progress", tripHandler.UpdateProgress)
		trips.POST("/:id/complete", tripHandler.CompleteTrip)
		trips.POST("/:id/incident", tripHandler.AddIncident)
	}

	routes := v1.Group("/routes")
	{
		routes.GET("", routeHandler.ListRoutes)
		routes.GET("/stats", routeHandler.Stats)
		routes.GET("/near", routeHandler.RoutesNear)
		routes.GET("/:id", routeHandler.GetRoute)
		routes.PUT("/:id", routeHandler.PutRoute)
		routes.DELETE("/:id", routeHandler.DeleteRoute)
	}

	v1.POST("/alerts", alertHandler.SendAlert)
	v1.GET("/connections/:id/subscriptions", diagnostics.Subscriptions)
	v1.GET("/topics/:name/subscribers", diagnostics.TopicSubscribers)
}
