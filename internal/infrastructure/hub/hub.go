package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-bus-tracking/internal/infrastructure/logger"
)

type Options struct {
	BusRefreshInterval  time.Duration
	TripRefreshInterval time.Duration
	// FetchTimeout bounds every Source query made for snapshots and refreshes.
	FetchTimeout    time.Duration
	CleanupInterval time.Duration
	BroadcastBuffer int
}

func DefaultOptions() Options {
	return Options{
		BusRefreshInterval:  30 * time.Second,
		TripRefreshInterval: 60 * time.Second,
		FetchTimeout:        5 * time.Second,
		CleanupInterval:     30 * time.Second,
		BroadcastBuffer:     1000,
	}
}

// dispatch is one unit of work for the broadcast loop: deliver message to
// the members of topics, or to every connection when all is set.
type dispatch struct {
	topics  []Topic
	all     bool
	message *Message
}

// Hub owns the connection registry and fans domain events out to
// subscribed connections. All deliveries go through a single loop, so
// messages on a topic reach each connection in publish order.
type Hub struct {
	registry *Registry
	source   Source
	opts     Options
	logger   logger.Logger
	now      func() time.Time

	running   bool
	runningMu sync.RWMutex

	broadcast chan *dispatch

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a new Hub instance
func New(source Source, opts Options, log logger.Logger) *Hub {
	defaults := DefaultOptions()
	if opts.BusRefreshInterval <= 0 {
		opts.BusRefreshInterval = defaults.BusRefreshInterval
	}
	if opts.TripRefreshInterval <= 0 {
		opts.TripRefreshInterval = defaults.TripRefreshInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaults.FetchTimeout
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaults.CleanupInterval
	}
	if opts.BroadcastBuffer <= 0 {
		opts.BroadcastBuffer = defaults.BroadcastBuffer
	}

	return &Hub{
		registry:  NewRegistry(),
		source:    source,
		opts:      opts,
		logger:    log.WithField("component", "hub"),
		now:       time.Now,
		broadcast: make(chan *dispatch, opts.BroadcastBuffer),
	}
}

// Start launches the broadcast loop and both refresh schedules.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.group = &errgroup.Group{}
	h.running = true

	h.group.Go(func() error { return h.run(h.ctx) })
	h.group.Go(func() error {
		return h.every(h.ctx, h.opts.BusRefreshInterval, "bus-location", h.refreshBuses)
	})
	h.group.Go(func() error {
		return h.every(h.ctx, h.opts.TripRefreshInterval, "trip-progress", h.refreshTrips)
	})

	h.logger.Infof(
		"Hub started (bus refresh %s, trip refresh %s)",
		h.opts.BusRefreshInterval,
		h.opts.TripRefreshInterval,
	)
	return nil
}

// Stop halts the loops and closes every connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.cancel()
	group := h.group
	h.runningMu.Unlock()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for hub loops: %w", ctx.Err())
	}

	for _, conn := range h.registry.Clear() {
		if cerr := conn.Close(); cerr != nil {
			h.logger.Errorf("Failed to close connection %s: %v", conn.ID(), cerr)
		}
	}

	h.logger.Info("Hub stopped")
	return err
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

func (h *Hub) loopContext() (context.Context, bool) {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.ctx, h.running
}

// RegisterConnection adds conn with no subscriptions and pushes the initial
// snapshot to it. The connection is dropped from the hub when its context
// ends.
func (h *Hub) RegisterConnection(conn Connection) error {
	ctx, running := h.loopContext()
	if !running {
		return ErrHubNotRunning
	}
	if !h.registry.Add(conn) {
		return fmt.Errorf("connection %s already registered", conn.ID())
	}

	h.logger.Infof("Connection %s registered (type: %s)", conn.ID(), conn.Type())

	// Monitor connection context for disconnection
	go func() {
		select {
		case <-conn.Context().Done():
			_ = h.UnregisterConnection(conn.ID())
		case <-ctx.Done():
		}
	}()

	go h.sendInitialData(ctx, conn)
	return nil
}

// UnregisterConnection removes the connection and all of its subscriptions.
// Unregistering an unknown or already removed id is a no-op.
func (h *Hub) UnregisterConnection(connID string) error {
	conn, ok := h.registry.Remove(connID)
	if !ok {
		return nil
	}
	if err := conn.Close(); err != nil {
		h.logger.Warnf("Failed to close connection %s: %v", connID, err)
	}
	h.logger.Infof("Connection %s unregistered", connID)
	return nil
}

func (h *Hub) Subscribe(connID string, topic Topic) error {
	if err := h.registry.Subscribe(connID, topic); err != nil {
		return err
	}
	h.logger.Debugf("Connection %s subscribed to %s", connID, topic)
	return nil
}

func (h *Hub) Unsubscribe(connID string, topic Topic) error {
	if err := h.registry.Unsubscribe(connID, topic); err != nil {
		return err
	}
	h.logger.Debugf("Connection %s unsubscribed from %s", connID, topic)
	return nil
}

// Subscriptions lists the topics a connection currently belongs to.
func (h *Hub) Subscriptions(connID string) ([]Topic, error) {
	return h.registry.Subscriptions(connID)
}

// GetConnection returns a connection by ID
func (h *Hub) GetConnection(connID string) (Connection, bool) {
	return h.registry.Get(connID)
}

// GetConnections returns all active connections
func (h *Hub) GetConnections() []Connection {
	return h.registry.All()
}

// GetConnectionsByType returns connections of a specific type
func (h *Hub) GetConnectionsByType(connType string) []Connection {
	var connections []Connection
	for _, conn := range h.registry.All() {
		if conn.Type() == connType {
			connections = append(connections, conn)
		}
	}
	return connections
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	return h.registry.Len()
}

// SubscriberCount returns the number of connections subscribed to topic.
func (h *Hub) SubscriberCount(topic Topic) int {
	return len(h.registry.Members(topic))
}

// TopicCount returns the number of topics with at least one subscriber.
func (h *Hub) TopicCount() int {
	return h.registry.TopicCount()
}

// enqueue hands d to the broadcast loop without blocking the caller. When
// the queue is full the message is dropped; the next refresh catches
// clients up.
func (h *Hub) enqueue(d *dispatch) error {
	ctx, running := h.loopContext()
	if !running {
		return ErrHubNotRunning
	}

	select {
	case h.broadcast <- d:
		return nil
	case <-ctx.Done():
		return ErrHubNotRunning
	default:
		h.logger.Warnf("Broadcast queue full, dropping %s message %s", d.message.Type, d.message.ID)
		return ErrBroadcastQueueFull
	}
}

// run is the main hub loop that delivers queued messages
func (h *Hub) run(ctx context.Context) error {
	ticker := time.NewTicker(h.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case d := <-h.broadcast:
			h.deliver(ctx, d)

		case <-ticker.C:
			h.cleanupClosedConnections()

		case <-ctx.Done():
			h.logger.Info("Hub run loop stopped")
			return nil
		}
	}
}

// deliver sends one message to its targets. A failed send only affects the
// connection it was meant for.
func (h *Hub) deliver(ctx context.Context, d *dispatch) {
	var targets []Connection
	if d.all {
		targets = h.registry.All()
	} else {
		targets = h.registry.Members(d.topics...)
	}

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(ctx, d.message); err != nil {
			h.logger.Warnf("Failed to deliver %s to connection %s: %v", d.message.Type, conn.ID(), err)
			if conn.IsClosed() {
				_ = h.UnregisterConnection(conn.ID())
			}
			continue
		}
		delivered++
	}

	h.logger.Debugf("Delivered %s message %s to %d/%d connections", d.message.Type, d.message.ID, delivered, len(targets))
}

// cleanupClosedConnections removes connections that have been closed
func (h *Hub) cleanupClosedConnections() {
	for _, conn := range h.registry.All() {
		if conn.IsClosed() {
			if _, ok := h.registry.Remove(conn.ID()); ok {
				h.logger.Infof("Cleaned up closed connection %s", conn.ID())
			}
		}
	}
}
