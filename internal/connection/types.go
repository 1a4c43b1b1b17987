package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrGaveUp          = errors.New("reconnect attempts exhausted")
	ErrDisconnected    = errors.New("disconnected")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ReconnectState tracks consecutive failed attempts since the last successful connection.
type ReconnectState struct {
	Attempts  int
	NextDelay time.Duration
}

// StateEvent describes one state transition.
type StateEvent struct {
	State     State
	Connected bool
	Attempts  int
	GaveUp    bool  // True when the attempt ceiling was reached
	Err       error // Transport error that caused the transition, if any
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Connection Manager to the Subscription Registry.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Session    uint64    // Connection session the frame arrived on
	ReceivedAt time.Time // Local timestamp when the transport received the frame
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://crm.example.com/ws)
	Token            string        // Bearer token (empty = no auth header)
	PingTimeout      time.Duration // Max time without ping before considering connection stale
	PingInterval     time.Duration // How often to send keepalive pings
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial handshake deadline
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	ReconnectBaseWait    time.Duration // Delay before the first retry
	ReconnectMaxWait     time.Duration // Ceiling for the doubling delay
	MaxReconnectAttempts int           // Consecutive failures before giving up (0 = never)
	MessageBufferSize    int           // Buffer size for output message channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  30 * time.Second,
		MessageBufferSize: 1000,
	}
}
