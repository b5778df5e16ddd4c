package hub

import (
	"maps"

	"go-bus-tracking/internal/domain/transit"
)

type EventKind string

const (
	EventBusLocation  EventKind = "bus_location"
	EventTripProgress EventKind = "trip_progress"
	EventTripUpdate   EventKind = "trip_update"
)

// Event is a state change to fan out. EventTripUpdate carries a free-form
// trip update relayed from a client. It lives only for the duration of
// the publish call.
type Event struct {
	Kind     EventKind
	EntityID string
	Payload  any
}

// Topics returns the entity topic and the blanket topic the event targets.
func (e Event) Topics() ([]Topic, bool) {
	switch e.Kind {
	case EventBusLocation:
		return []Topic{BusTopic(e.EntityID), AllBusesTopic}, true
	case EventTripProgress, EventTripUpdate:
		return []Topic{TripTopic(e.EntityID), AllTripsTopic}, true
	default:
		return nil, false
	}
}

func (e Event) messageType() MessageType {
	switch e.Kind {
	case EventTripProgress:
		return MessageTypeTripProgressUpdate
	case EventTripUpdate:
		return MessageTypeTripUpdate
	default:
		return MessageTypeBusLocationUpdate
	}
}

// Publish delivers the event once to every connection subscribed to its
// entity topic or its blanket topic. Delivery is fire-and-forget.
func (h *Hub) Publish(event Event) error {
	topics, ok := event.Topics()
	if !ok {
		h.logger.Warnf("Ignoring event with unknown kind %q", event.Kind)
		return ErrUnknownEventKind
	}

	msg := NewMessageBuilder().
		WithType(event.messageType()).
		WithData(event.Payload).
		WithPriority(PriorityNormal).
		WithTimestamp(h.now()).
		Build()

	return h.enqueue(&dispatch{topics: topics, message: msg})
}

// NotifyBusLocation publishes a location update for one bus.
func (h *Hub) NotifyBusLocation(busID string, location transit.Location, speed, heading float64) {
	err := h.Publish(Event{
		Kind:     EventBusLocation,
		EntityID: busID,
		Payload: BusLocationPayload{
			BusID:     busID,
			Location:  location,
			Speed:     speed,
			Heading:   heading,
			Timestamp: h.now(),
		},
	})
	if err != nil {
		h.logger.Warnf("Bus location update for %s not published: %v", busID, err)
	}
}

// NotifyTripProgress publishes a progress update for one trip.
func (h *Hub) NotifyTripProgress(tripID string, progress transit.TripProgress) {
	err := h.Publish(Event{
		Kind:     EventTripProgress,
		EntityID: tripID,
		Payload: TripProgressPayload{
			TripID:    tripID,
			Progress:  progress,
			Timestamp: h.now(),
		},
	})
	if err != nil {
		h.logger.Warnf("Trip progress update for %s not published: %v", tripID, err)
	}
}

// NotifySystemAlert stamps the payload and sends it to every connection,
// regardless of subscriptions.
func (h *Hub) NotifySystemAlert(payload map[string]any) {
	now := h.now()
	data := make(map[string]any, len(payload)+1)
	maps.Copy(data, payload)
	data["timestamp"] = now.UTC()

	if err := h.enqueue(&dispatch{all: true, message: AlertMessage(data, now)}); err != nil {
		h.logger.Warnf("System alert not broadcast: %v", err)
	}
}
