package hub

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"go-bus-tracking/internal/infrastructure/logger"
)

const (
	ConnectionTypeSSE       = "sse"
	ConnectionTypeWebSocket = "websocket"
)

type ConnectionOptions struct {
	SendBuffer        int
	KeepAliveInterval time.Duration
	WriteTimeout      time.Duration
	PongTimeout       time.Duration
	// Inbound frame rate limit for bidirectional connections.
	MessageRate  float64
	MessageBurst int
	MaxFrameSize int64
}

func DefaultConnectionOptions() ConnectionOptions {
	return ConnectionOptions{
		SendBuffer:        256,
		KeepAliveInterval: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
		PongTimeout:       60 * time.Second,
		MessageRate:       10,
		MessageBurst:      20,
		MaxFrameSize:      4096,
	}
}

func (o ConnectionOptions) withDefaults() ConnectionOptions {
	d := DefaultConnectionOptions()
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = d.KeepAliveInterval
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = d.PongTimeout
	}
	if o.MessageRate <= 0 {
		o.MessageRate = d.MessageRate
	}
	if o.MessageBurst <= 0 {
		o.MessageBurst = d.MessageBurst
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = d.MaxFrameSize
	}
	return o
}

// baseConnection holds the bounded outbound queue shared by every
// transport. Send never blocks: a full queue drops the message.
type baseConnection struct {
	id   string
	send chan *Message

	ctx    context.Context
	cancel context.CancelFunc

	closed   bool
	closedMu sync.RWMutex

	logger logger.Logger
}

func (c *baseConnection) init(ctx context.Context, id string, buffer int, log logger.Logger) {
	c.id = id
	c.send = make(chan *Message, buffer)
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger = log.WithField("connection_id", id)
}

// ID returns unique connection identifier
func (c *baseConnection) ID() string {
	return c.id
}

func (c *baseConnection) Send(ctx context.Context, message *Message) error {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSendBufferFull
	}
}

// markClosed reports whether this call performed the close.
func (c *baseConnection) markClosed() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	c.cancel()
	return true
}

// IsClosed returns true if connection is closed
func (c *baseConnection) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// Context returns the connection's context (for cancellation)
func (c *baseConnection) Context() context.Context {
	return c.ctx
}

// SSEConnection implements the Connection interface for Server-Sent Events.
// Serve must run on the request goroutine; it owns the ResponseWriter.
type SSEConnection struct {
	baseConnection

	writer http.ResponseWriter
	opts   ConnectionOptions
}

// NewSSEConnection creates a new SSE connection bound to the request context.
func NewSSEConnection(
	ctx context.Context,
	id string,
	w http.ResponseWriter,
	opts ConnectionOptions,
	log logger.Logger,
) *SSEConnection {
	opts = opts.withDefaults()
	conn := &SSEConnection{
		writer: w,
		opts:   opts,
	}
	conn.init(ctx, id, opts.SendBuffer, log)
	return conn
}

// Type returns the connection type
func (c *SSEConnection) Type() string {
	return ConnectionTypeSSE
}

// Close gracefully closes the connection
func (c *SSEConnection) Close() error {
	if c.markClosed() {
		c.logger.Info("SSE connection closed")
	}
	return nil
}

// Serve writes queued messages as SSE events until the connection closes.
func (c *SSEConnection) Serve() {
	c.setupSSEHeaders()

	ticker := time.NewTicker(c.opts.KeepAliveInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.logger.Errorf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.write(KeepAliveMessage(time.Now())); err != nil {
				c.logger.Errorf("Failed to send keep-alive: %v", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// setupSSEHeaders sets up the proper headers for SSE connection
func (c *SSEConnection) setupSSEHeaders() {
	h := c.writer.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // For nginx
}

func (c *SSEConnection) write(message *Message) error {
	err := sse.Encode(c.writer, sse.Event{
		Id:    message.ID,
		Event: message.Type,
		Data:  message.Data,
	})
	if err != nil {
		return fmt.Errorf("encode SSE event: %w", err)
	}

	// Flush the data to ensure it's sent immediately
	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// WebSocketConnection implements the Connection interface for WebSocket
// connections. Inbound text frames are passed to onMessage.
type WebSocketConnection struct {
	baseConnection

	conn      *websocket.Conn
	opts      ConnectionOptions
	limiter   *rate.Limiter
	onMessage func(connID string, data []byte)

	listenOnce sync.Once
}

// NewWebSocketConnection creates a new WebSocket connection and starts its
// write pump. Inbound frames are not read until Listen is called.
func NewWebSocketConnection(
	id string,
	conn *websocket.Conn,
	opts ConnectionOptions,
	onMessage func(connID string, data []byte),
	log logger.Logger,
) *WebSocketConnection {
	opts = opts.withDefaults()

	wsConn := &WebSocketConnection{
		conn:      conn,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Limit(opts.MessageRate), opts.MessageBurst),
		onMessage: onMessage,
	}
	wsConn.init(context.Background(), id, opts.SendBuffer, log)

	wsConn.setupWebSocket()

	go wsConn.writePump()

	return wsConn
}

// Listen starts the read pump. Call it once the connection is registered so
// that early subscribe frames find it. Later calls are no-ops.
func (c *WebSocketConnection) Listen() {
	c.listenOnce.Do(func() {
		go c.readPump()
	})
}

// Type returns the connection type
func (c *WebSocketConnection) Type() string {
	return ConnectionTypeWebSocket
}

// Close sends a close frame and tears down the socket. WriteControl and
// Close are safe to call alongside the write pump.
func (c *WebSocketConnection) Close() error {
	if !c.markClosed() {
		return nil
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.opts.WriteTimeout),
	)
	err := c.conn.Close()

	c.logger.Info("WebSocket connection closed")
	return err
}

// setupWebSocket configures WebSocket connection settings
func (c *WebSocketConnection) setupWebSocket() {
	c.conn.SetReadLimit(c.opts.MaxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})
}

// writePump is the only writer of data frames on the socket.
func (c *WebSocketConnection) writePump() {
	// Ping comfortably inside the pong timeout
	ticker := time.NewTicker(c.opts.PongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Errorf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("Failed to send ping: %v", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *WebSocketConnection) readPump() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Errorf("WebSocket error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Debugf("Ignoring non-text frame of length %d", len(data))
			continue
		}

		if !c.limiter.Allow() {
			c.logger.Warn("Client frame rate exceeded, dropping frame")
			continue
		}

		if c.onMessage != nil {
			c.onMessage(c.id, data)
		}
	}
}
