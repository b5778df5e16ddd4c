package handler

import (
	"context"
	"time"

	"go-bus-tracking/internal/domain/transit"
)

type BusStore interface {
	ListBuses(ctx context.Context, status transit.BusStatus) ([]transit.Bus, error)
	GetBus(ctx context.Context, busID string) (*transit.Bus, error)
	PutBus(ctx context.Context, bus *transit.Bus) error
	DeleteBus(ctx context.Context, busID string) error
	UpdateBusLocation(ctx context.Context, busID string, update transit.LocationUpdate) (*transit.Bus, error)
	ListBusesNear(ctx context.Context, loc transit.Location, maxMeters float64) ([]transit.Bus, error)
	BusStats(ctx context.Context) (transit.Stats, error)
}

type TripStore interface {
	ListTrips(ctx context.Context, status transit.TripStatus) ([]transit.Trip, error)
	ListActiveTrips(ctx context.Context) ([]transit.Trip, error)
	GetTrip(ctx context.Context, tripID string) (*transit.Trip, error)
	PutTrip(ctx context.Context, trip *transit.Trip) error
	DeleteTrip(ctx context.Context, tripID string) error
	UpdateTripProgress(ctx context.Context, tripID string, update transit.ProgressUpdate) (*transit.Trip, error)
	AddTripIncident(ctx context.Context, tripID string, incident transit.Incident) (*transit.Trip, error)
	ListTripsByRouteAndDate(ctx context.Context, routeID string, date time.Time) ([]transit.Trip, error)
	TripStats(ctx context.Context) (transit.Stats, error)
}

type RouteStore interface {
	ListRoutes(ctx context.Context) ([]transit.Route, error)
	GetRoute(ctx context.Context, routeID string) (*transit.Route, error)
	PutRoute(ctx context.Context, route *transit.Route) error
	DeleteRoute(ctx context.Context, routeID string) error
	ListRoutesNear(ctx context.Context, loc transit.Location, maxMeters float64) ([]transit.Route, error)
	RouteStats(ctx context.Context) (transit.Stats, error)
}

type Store interface {
	BusStore
	TripStore
	RouteStore
}

// Notifier publishes state changes to real-time subscribers. Calls never
// fail from the caller's point of view.
type Notifier interface {
	NotifyBusLocation(busID string, location transit.Location, speed, heading float64)
	NotifyTripProgress(tripID string, progress transit.TripProgress)
	NotifySystemAlert(payload map[string]any)
}

// Invalidator drops cached snapshots after a write.
type Invalidator interface {
	Invalidate()
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}
