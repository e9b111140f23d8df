package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection to the simulation backend.
// A Client is used for one connection attempt only.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send writes a text frame to the connection.
	Send(data []byte) error

	// Messages returns a channel of inbound frames in arrival order.
	// The channel is closed once the connection has ended.
	Messages() <-chan Frame

	// Err returns why the connection ended, or nil while it is open.
	Err() error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	connID int
	logger *slog.Logger

	conn *websocket.Conn

	// Output channel
	messages chan Frame

	// done is closed by Close; readDone when the read loop exits.
	done      chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
	err       error
}

// NewClient creates a new WebSocket client. connID tags every frame it reads.
func NewClient(cfg ClientConfig, connID int, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	return &client{
		cfg:      cfg,
		connID:   connID,
		logger:   logger,
		messages: make(chan Frame, cfg.BufferSize),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: c.cfg.HandshakeTimeout,
		}
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Close raced with the dial.
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()
	if c.cfg.HeartbeatInterval > 0 {
		go c.heartbeatLoop()
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	c.closeOnce.Do(func() { close(c.done) })

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return conn.Close()
}

// Send writes a text frame to the connection.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the messages channel.
func (c *client) Messages() <-chan Frame {
	return c.messages
}

// Err returns the error that ended the connection.
func (c *client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads frames until the connection ends, then closes the
// messages channel.
func (c *client) readLoop() {
	defer close(c.messages)
	defer close(c.readDone)

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			c.mu.Lock()
			c.connected = false
			if c.closed {
				c.err = ErrAlreadyClosed
			} else {
				c.err = err
			}
			c.mu.Unlock()
			return
		}

		frame := Frame{
			Data:       data,
			ConnID:     c.connID,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- frame:
		case <-c.done:
			return
		}
	}
}

// heartbeatLoop sends the liveness token until the connection ends.
// Send failures are ignored; only the read loop decides the connection is gone.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	token := []byte(c.cfg.HeartbeatToken)

	for {
		select {
		case <-c.done:
			return
		case <-c.readDone:
			return
		case <-ticker.C:
			if err := c.Send(token); err != nil {
				c.logger.Debug("failed to send heartbeat", "error", err)
			}
		}
	}
}
