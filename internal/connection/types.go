package connection

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrAlreadyStarted    = errors.New("supervisor already started")
	ErrUnsupportedScheme = errors.New("unsupported origin scheme")
)

// Frame is one inbound message from the stream.
type Frame struct {
	Data       []byte    // Raw message bytes from WebSocket
	ConnID     int       // Connection attempt that received it (1, 2, ...)
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// FrameHandler receives inbound frames in transport order.
// HandleFrame runs on the supervisor's goroutine and should return quickly.
type FrameHandler interface {
	HandleFrame(f Frame)
}

// FrameHandlerFunc is a function adapter for FrameHandler.
type FrameHandlerFunc func(Frame)

func (fn FrameHandlerFunc) HandleFrame(f Frame) {
	fn(f)
}

// State is the supervisor's connection state.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL               string            // Stream URL (e.g., wss://sim.example.com/ws)
	HeartbeatInterval time.Duration     // Interval between liveness probes
	HeartbeatToken    string            // Literal text frame sent as the probe
	HandshakeTimeout  time.Duration     // Dial handshake limit
	WriteTimeout      time.Duration     // Write deadline for sends
	BufferSize        int               // Message channel buffer size
	Dialer            *websocket.Dialer // Optional; nil uses a dialer with HandshakeTimeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HeartbeatInterval: 15 * time.Second,
		HeartbeatToken:    "ping",
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1024,
	}
}

// SupervisorConfig configures the Connection Supervisor.
type SupervisorConfig struct {
	Client         ClientConfig  // Template for every connection attempt
	BackoffFloor   time.Duration // First retry delay, restored after every successful open
	BackoffCeiling time.Duration // Upper bound for the retry delay
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Client:         DefaultClientConfig(),
		BackoffFloor:   1 * time.Second,
		BackoffCeiling: 10 * time.Second,
	}
}

// SupervisorStats provides statistics about the supervisor.
type SupervisorStats struct {
	State          State
	Attempts       int64         // Connection attempts started
	Opens          int64         // Attempts that reached StateOpen
	Failures       int64         // Attempts that failed to open
	Closes         int64         // Open connections that later closed
	FramesReceived int64         // Frames handed to the FrameHandler
	NextDelay      time.Duration // Delay the next retry will wait
}
