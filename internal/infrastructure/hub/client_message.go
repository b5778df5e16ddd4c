package hub

import (
	"encoding/json"
	"fmt"
)

const (
	ClientEventSubscribe         = "subscribe"
	ClientEventUnsubscribe       = "unsubscribe"
	ClientEventBusLocationUpdate = "busLocationUpdate"
	ClientEventTripUpdate        = "tripUpdate"
)

// SubscriptionRequest is the {type, id} body of subscribe and unsubscribe
// requests.
type SubscriptionRequest struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ClientMessage is a frame sent by a client over a bidirectional connection.
// Data is decoded according to Event.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HandleClientMessage applies a subscribe or unsubscribe frame, or relays a
// client-reported bus location or trip update to the matching topics.
// Malformed frames, unknown events and unknown topic types are ignored
// without a reply.
func (h *Hub) HandleClientMessage(connID string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debugf("Ignoring malformed frame from %s: %v", connID, err)
		return
	}

	var err error
	switch msg.Event {
	case ClientEventSubscribe, ClientEventUnsubscribe:
		var req SubscriptionRequest
		if err = json.Unmarshal(msg.Data, &req); err != nil {
			break
		}
		if msg.Event == ClientEventSubscribe {
			_, err = h.SubscribeRequest(connID, req)
		} else {
			_, err = h.UnsubscribeRequest(connID, req)
		}
	case ClientEventBusLocationUpdate:
		err = h.relay(EventBusLocation, "busId", msg.Data)
	case ClientEventTripUpdate:
		err = h.relay(EventTripUpdate, "tripId", msg.Data)
	default:
		h.logger.Debugf("Ignoring %q frame from %s", msg.Event, connID)
		return
	}
	if err != nil {
		h.logger.Debugf("Frame from %s not applied: %v", connID, err)
	}
}

// relay publishes a client-supplied payload as-is. The entity id is read
// from idField and must be a non-empty string.
func (h *Hub) relay(kind EventKind, idField string, data json.RawMessage) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", kind, err)
	}
	id, _ := payload[idField].(string)
	if id == "" {
		return fmt.Errorf("%w: %s payload has no %s", ErrMissingEntityID, kind, idField)
	}
	return h.Publish(Event{Kind: kind, EntityID: id, Payload: payload})
}

// SubscribeRequest subscribes connID to the topic named by req. It returns
// false, with no error, when the topic type is not recognised.
func (h *Hub) SubscribeRequest(connID string, req SubscriptionRequest) (bool, error) {
	topic, ok := ParseTopic(req.Type, req.ID)
	if !ok {
		h.logger.Debugf("Ignoring subscribe from %s with type %q", connID, req.Type)
		return false, nil
	}
	return true, h.Subscribe(connID, topic)
}

// UnsubscribeRequest is the inverse of SubscribeRequest.
func (h *Hub) UnsubscribeRequest(connID string, req SubscriptionRequest) (bool, error) {
	topic, ok := ParseTopic(req.Type, req.ID)
	if !ok {
		h.logger.Debugf("Ignoring unsubscribe from %s with type %q", connID, req.Type)
		return false, nil
	}
	return true, h.Unsubscribe(connID, topic)
}
