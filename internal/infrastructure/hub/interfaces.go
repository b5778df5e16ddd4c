package hub

import (
	"context"
	"errors"

	"go-bus-tracking/internal/domain/transit"
)

var (
	ErrHubNotRunning      = errors.New("hub is not running")
	ErrHubAlreadyRunning  = errors.New("hub is already running")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection is closed")
	ErrSendBufferFull     = errors.New("connection send buffer is full")
	ErrBroadcastQueueFull = errors.New("broadcast queue is full")
	ErrUnknownEventKind   = errors.New("unknown event kind")
	ErrMissingEntityID    = errors.New("event has no entity id")
)

// Connection represents any type of connection (SSE, WebSocket, etc.)
type Connection interface {
	ID() string
	Type() string
	// Send queues message for delivery and must not block on the network.
	Send(ctx context.Context, message *Message) error
	Close() error
	IsClosed() bool
	Context() context.Context
}

// Source supplies the current active entities for snapshots and periodic
// refreshes.
type Source interface {
	FetchActiveBuses(ctx context.Context) ([]transit.BusPosition, error)
	FetchActiveTrips(ctx context.Context) ([]transit.TripSummary, error)
}

// Message represents a message to be sent through connections
type Message struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Data    any               `json:"data"`
	Headers map[string]string `json:"headers,omitempty"`
}
