package hub

import (
	"time"

	"github.com/google/uuid"

	"go-bus-tracking/internal/domain/transit"
)

// MessageType is the event name a client sees.
type MessageType string

const (
	MessageTypeConnected          MessageType = "connected"
	MessageTypeInitialData        MessageType = "initialData"
	MessageTypeBusLocationUpdate  MessageType = "busLocationUpdate"
	MessageTypeTripProgressUpdate MessageType = "tripProgressUpdate"
	MessageTypeTripUpdate         MessageType = "tripUpdate"
	MessageTypeSystemAlert        MessageType = "systemAlert"
	MessageTypeKeepAlive          MessageType = "keepalive"
)

// MessagePriority defines message priority levels
type MessagePriority string

const (
	PriorityNormal MessagePriority = "normal"
	PriorityHigh   MessagePriority = "high"
)

// Snapshot payload types.
const (
	SnapshotBuses = "buses"
	SnapshotTrips = "trips"
	SnapshotBulk  = "bulk"
)

// Snapshot carries a list of entities: the initial data sent on connect and
// the bulk refreshes pushed to blanket topics.
type Snapshot struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type BusLocationPayload struct {
	BusID     string           `json:"busId"`
	Location  transit.Location `json:"location"`
	Speed     float64          `json:"speed"`
	Heading   float64          `json:"heading"`
	Timestamp time.Time        `json:"timestamp"`
}

type TripProgressPayload struct {
	TripID    string               `json:"tripId"`
	Progress  transit.TripProgress `json:"progress"`
	Timestamp time.Time            `json:"timestamp"`
}

// MessageBuilder helps build messages with fluent interface
type MessageBuilder struct {
	message *Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		message: &Message{
			Headers: make(map[string]string),
		},
	}
}

func (mb *MessageBuilder) WithType(msgType MessageType) *MessageBuilder {
	mb.message.Type = string(msgType)
	return mb
}

func (mb *MessageBuilder) WithData(data any) *MessageBuilder {
	mb.message.Data = data
	return mb
}

func (mb *MessageBuilder) WithHeader(key, value string) *MessageBuilder {
	if mb.message.Headers == nil {
		mb.message.Headers = make(map[string]string)
	}
	mb.message.Headers[key] = value
	return mb
}

func (mb *MessageBuilder) WithPriority(priority MessagePriority) *MessageBuilder {
	return mb.WithHeader("priority", string(priority))
}

func (mb *MessageBuilder) WithTimestamp(t time.Time) *MessageBuilder {
	return mb.WithHeader("timestamp", t.UTC().Format(time.RFC3339Nano))
}

// Build fills in a random ID and the current time when they were not set.
func (mb *MessageBuilder) Build() *Message {
	if mb.message.ID == "" {
		mb.message.ID = uuid.NewString()
	}
	if _, exists := mb.message.Headers["timestamp"]; !exists {
		mb.WithTimestamp(time.Now())
	}
	return mb.message
}

func ConnectedMessage(connID string, now time.Time) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeConnected).
		WithData(map[string]any{
			"connectionId": connID,
			"timestamp":    now.UTC().Format(time.RFC3339),
		}).
		WithTimestamp(now).
		Build()
}

func InitialDataMessage(kind string, data any) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeInitialData).
		WithData(Snapshot{Type: kind, Data: data}).
		Build()
}

func BulkBusLocationMessage(buses []transit.BusPosition) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeBusLocationUpdate).
		WithData(Snapshot{Type: SnapshotBulk, Data: buses}).
		Build()
}

func BulkTripProgressMessage(trips []transit.TripSummary) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeTripProgressUpdate).
		WithData(Snapshot{Type: SnapshotBulk, Data: trips}).
		Build()
}

func AlertMessage(payload map[string]any, now time.Time) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeSystemAlert).
		WithData(payload).
		WithPriority(PriorityHigh).
		WithTimestamp(now).
		Build()
}

func KeepAliveMessage(now time.Time) *Message {
	return NewMessageBuilder().
		WithType(MessageTypeKeepAlive).
		WithData(map[string]any{
			"timestamp": now.Unix(),
		}).
		WithTimestamp(now).
		Build()
}
