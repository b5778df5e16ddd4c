package transit

import (
	"math"
	"time"
)

// MaxLocationHistory bounds the number of location samples kept per bus.
const MaxLocationHistory = 100

type BusStatus string

const (
	BusStatusActive      BusStatus = "active"
	BusStatusInactive    BusStatus = "inactive"
	BusStatusMaintenance BusStatus = "maintenance"
	BusStatusOffline     BusStatus = "offline"
)

type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusBoarding  TripStatus = "boarding"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusInTransit TripStatus = "in_transit"
	TripStatusArrived   TripStatus = "arrived"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusDelayed   TripStatus = "delayed"
)

// ActiveTripStatuses are the statuses of a trip that is currently underway.
var ActiveTripStatuses = []TripStatus{
	TripStatusBoarding,
	TripStatusDeparted,
	TripStatusInTransit,
}

// IsActive reports whether the trip status counts as underway.
func (s TripStatus) IsActive() bool {
	for _, active := range ActiveTripStatuses {
		if s == active {
			return true
		}
	}
	return false
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type LocationSample struct {
	Location
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

type Operator struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type VehicleInfo struct {
	Make     string   `json:"make"`
	Model    string   `json:"model"`
	Year     int      `json:"year"`
	Capacity int      `json:"capacity"`
	Features []string `json:"features,omitempty"`
}

type BusState struct {
	Status      BusStatus `json:"status"`
	Location    Location  `json:"location"`
	Speed       float64   `json:"speed"`
	Heading     float64   `json:"heading"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Bus struct {
	BusID              string           `json:"busId"`
	RegistrationNumber string           `json:"registrationNumber"`
	RouteID            string           `json:"routeId"`
	Operator           Operator         `json:"operator"`
	Vehicle            VehicleInfo      `json:"vehicleInfo"`
	Current            BusState         `json:"currentStatus"`
	CurrentTripID      string           `json:"currentTripId,omitempty"`
	LocationHistory    []LocationSample `json:"locationHistory,omitempty"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// LocationUpdate is a position report for one bus. Speed and Heading are
// optional; nil leaves the previous value in place.
type LocationUpdate struct {
	Location Location
	Speed    *float64
	Heading  *float64
}

// ApplyLocation moves the bus to the reported position and records the
// sample in its bounded history.
func (b *Bus) ApplyLocation(update LocationUpdate, now time.Time) {
	b.Current.Location = update.Location
	b.Current.LastUpdated = now
	if update.Speed != nil {
		b.Current.Speed = *update.Speed
	}
	if update.Heading != nil {
		b.Current.Heading = *update.Heading
	}

	b.LocationHistory = append(b.LocationHistory, LocationSample{
		Location:  update.Location,
		Speed:     b.Current.Speed,
		Heading:   b.Current.Heading,
		Timestamp: now,
	})
	if n := len(b.LocationHistory); n > MaxLocationHistory {
		b.LocationHistory = append([]LocationSample(nil), b.LocationHistory[n-MaxLocationHistory:]...)
	}
	b.UpdatedAt = now
}

// Position projects the bus onto the snapshot shape pushed to clients.
func (b *Bus) Position() BusPosition {
	return BusPosition{
		BusID:    b.BusID,
		Location: b.Current.Location,
		Speed:    b.Current.Speed,
		Heading:  b.Current.Heading,
	}
}

type Schedule struct {
	PlannedStart time.Time  `json:"plannedStartTime"`
	PlannedEnd   time.Time  `json:"plannedEndTime"`
	ActualStart  *time.Time `json:"actualStartTime,omitempty"`
	ActualEnd    *time.Time `json:"actualEndTime,omitempty"`
}

type TripProgress struct {
	Percentage  float64 `json:"percentage"`
	CurrentStop string  `json:"currentStop,omitempty"`
	NextStop    string  `json:"nextStop,omitempty"`
}

type IncidentType string

const (
	IncidentBreakdown IncidentType = "breakdown"
	IncidentTraffic   IncidentType = "traffic"
	IncidentWeather   IncidentType = "weather"
	IncidentAccident  IncidentType = "accident"
	IncidentOther     IncidentType = "other"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Incident struct {
	Type        IncidentType `json:"type"`
	Description string       `json:"description,omitempty"`
	Severity    Severity     `json:"severity"`
	Location    *Location    `json:"location,omitempty"`
	ReportedAt  time.Time    `json:"reportedAt"`
}

type Trip struct {
	TripID          string       `json:"tripId"`
	RouteID         string       `json:"routeId"`
	BusID           string       `json:"busId"`
	DriverID        string       `json:"driverId"`
	Schedule        Schedule     `json:"schedule"`
	Status          TripStatus   `json:"status"`
	Progress        TripProgress `json:"progress"`
	CurrentLocation *Location    `json:"currentLocation,omitempty"`
	Incidents       []Incident   `json:"incidents,omitempty"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// AddIncident records an incident. A high or critical incident marks an
// unfinished trip as delayed.
func (t *Trip) AddIncident(incident Incident, now time.Time) {
	if incident.Severity == "" {
		incident.Severity = SeverityMedium
	}
	incident.ReportedAt = now
	t.Incidents = append(t.Incidents, incident)

	severe := incident.Severity == SeverityHigh || incident.Severity == SeverityCritical
	finished := t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
	if severe && !finished {
		t.Status = TripStatusDelayed
	}
	t.UpdatedAt = now
}

// ProgressUpdate carries a progress report for one trip. Empty stop names
// and a nil location leave the previous values untouched.
type ProgressUpdate struct {
	Percentage      *float64
	CurrentStop     string
	NextStop        string
	CurrentLocation *Location
}

// ApplyProgress merges the update into the trip. The percentage is clamped
// to [0, 100].
func (t *Trip) ApplyProgress(update ProgressUpdate, now time.Time) {
	if update.Percentage != nil {
		t.Progress.Percentage = ClampPercentage(*update.Percentage)
	}
	if update.CurrentStop != "" {
		t.Progress.CurrentStop = update.CurrentStop
	}
	if update.NextStop != "" {
		t.Progress.NextStop = update.NextStop
	}
	if update.CurrentLocation != nil {
		loc := *update.CurrentLocation
		t.CurrentLocation = &loc
	}
	t.UpdatedAt = now
}

// Summary projects the trip onto the snapshot shape pushed to clients.
func (t *Trip) Summary() TripSummary {
	return TripSummary{
		TripID:   t.TripID,
		BusID:    t.BusID,
		Status:   t.Status,
		Progress: t.Progress.Percentage,
	}
}

func ClampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type Stop struct {
	Name     string   `json:"name"`
	Location Location `json:"location"`
	Order    int      `json:"order"`
}

type Route struct {
	RouteID           string    `json:"routeId"`
	Name              string    `json:"name"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DistanceKm        float64   `json:"distanceKm"`
	EstimatedDuration int       `json:"estimatedDurationMinutes"`
	Stops             []Stop    `json:"stops,omitempty"`
	Active            bool      `json:"active"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Stats counts documents of one kind by status.
type Stats struct {
	Total    int            `json:"total"`
	Active   int            `json:"active"`
	ByStatus map[string]int `json:"byStatus"`
}

func NewStats() Stats {
	return Stats{ByStatus: map[string]int{}}
}

// Count adds one document with the given status.
func (s *Stats) Count(status string, active bool) {
	s.Total++
	if active {
		s.Active++
	}
	s.ByStatus[status]++
}

const earthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Location) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BusPosition is the per-bus entry of location snapshots.
type BusPosition struct {
	BusID    string   `json:"busId"`
	Location Location `json:"location"`
	Speed    float64  `json:"speed"`
	Heading  float64  `json:"heading"`
}

// TripSummary is the per-trip entry of progress snapshots.
type TripSummary struct {
	TripID   string     `json:"tripId"`
	BusID    string     `json:"busId"`
	Status   TripStatus `json:"status"`
	Progress float64    `json:"progress"`
}
