package transit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_ApplyLocationKeepsPreviousSpeedWhenOmitted(t *testing.T) {
	bus := &Bus{BusID: "BUS001", Current: BusState{Speed: 40, Heading: 90}}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	bus.ApplyLocation(LocationUpdate{Location: Location{Latitude: 6.9, Longitude: 79.8}}, now)

	assert.Equal(t, Location{Latitude: 6.9, Longitude: 79.8}, bus.Current.Location)
	assert.Equal(t, 40.0, bus.Current.Speed)
	assert.Equal(t, 90.0, bus.Current.Heading)
	assert.Equal(t, now, bus.Current.LastUpdated)
	require.Len(t, bus.LocationHistory, 1)
	assert.Equal(t, 40.0, bus.LocationHistory[0].Speed)
}

func TestBus_ApplyLocationTrimsHistory(t *testing.T) {
	bus := &Bus{BusID: "BUS001"}
	start := time.Now()

	for i := 0; i < MaxLocationHistory+25; i++ {
		speed := float64(i)
		bus.ApplyLocation(LocationUpdate{Speed: &speed}, start.Add(time.Duration(i)*time.Second))
	}

	require.Len(t, bus.LocationHistory, MaxLocationHistory)
	assert.Equal(t, 25.0, bus.LocationHistory[0].Speed)
	assert.Equal(t, float64(MaxLocationHistory+24), bus.LocationHistory[MaxLocationHistory-1].Speed)
}

func TestTrip_ApplyProgressClamps(t *testing.T) {
	trip := &Trip{TripID: "TRIP001", Progress: TripProgress{CurrentStop: "Colombo"}}

	over := 140.0
	trip.ApplyProgress(ProgressUpdate{Percentage: &over, NextStop: "Kandy"}, time.Now())
	assert.Equal(t, 100.0, trip.Progress.Percentage)
	assert.Equal(t, "Colombo", trip.Progress.CurrentStop)
	assert.Equal(t, "Kandy", trip.Progress.NextStop)

	under := -3.0
	trip.ApplyProgress(ProgressUpdate{Percentage: &under}, time.Now())
	assert.Equal(t, 0.0, trip.Progress.Percentage)
}

func TestTripStatus_IsActive(t *testing.T) {
	assert.True(t, TripStatusBoarding.IsActive())
	assert.True(t, TripStatusDeparted.IsActive())
	assert.True(t, TripStatusInTransit.IsActive())
	assert.False(t, TripStatusScheduled.IsActive())
	assert.False(t, TripStatusCompleted.IsActive())
}

func TestTrip_AddIncident(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	trip := &Trip{TripID: "TRIP001", Status: TripStatusInTransit}

	trip.AddIncident(Incident{Type: IncidentTraffic}, now)
	require.Len(t, trip.Incidents, 1)
	assert.Equal(t, SeverityMedium, trip.Incidents[0].Severity)
	assert.Equal(t, now, trip.Incidents[0].ReportedAt)
	assert.Equal(t, TripStatusInTransit, trip.Status)

	trip.AddIncident(Incident{Type: IncidentBreakdown, Severity: SeverityCritical}, now)
	assert.Equal(t, TripStatusDelayed, trip.Status)

	done := &Trip{TripID: "TRIP002", Status: TripStatusCompleted}
	done.AddIncident(Incident{Type: IncidentAccident, Severity: SeverityHigh}, now)
	assert.Equal(t, TripStatusCompleted, done.Status)
}

func TestDistanceMeters(t *testing.T) {
	colombo := Location{Latitude: 6.9271, Longitude: 79.8612}
	kandy := Location{Latitude: 7.2906, Longitude: 80.6337}

	assert.InDelta(t, 94335, DistanceMeters(colombo, kandy), 50)
	assert.InDelta(t, DistanceMeters(colombo, kandy), DistanceMeters(kandy, colombo), 1e-6)
	assert.Zero(t, DistanceMeters(colombo, colombo))
}

func TestStats_Count(t *testing.T) {
	stats := NewStats()
	stats.Count("active", true)
	stats.Count("active", true)
	stats.Count("offline", false)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, map[string]int{"active": 2, "offline": 1}, stats.ByStatus)
}
