package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "simdash"
	DefaultOrigin            = "http://localhost:5173"
	DefaultStreamPath        = "/ws"
	DefaultBackoffFloor      = 1 * time.Second
	DefaultBackoffCeiling    = 10 * time.Second
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatToken    = "ping"
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultBufferSize        = 1024
	DefaultQueueSize         = 1024
	DefaultHTTPPort          = 8080
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Default returns a configuration with every default applied.
func Default() *DashboardConfig {
	cfg := &DashboardConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *DashboardConfig) ApplyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Stream defaults
	if c.Stream.Origin == "" {
		c.Stream.Origin = DefaultOrigin
	}
	if c.Stream.Path == "" {
		c.Stream.Path = DefaultStreamPath
	}
	if c.Stream.BackoffFloor == 0 {
		c.Stream.BackoffFloor = DefaultBackoffFloor
	}
	if c.Stream.BackoffCeiling == 0 {
		c.Stream.BackoffCeiling = DefaultBackoffCeiling
	}
	if c.Stream.HeartbeatInterval == 0 {
		c.Stream.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Stream.HeartbeatToken == "" {
		c.Stream.HeartbeatToken = DefaultHeartbeatToken
	}
	if c.Stream.HandshakeTimeout == 0 {
		c.Stream.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultBufferSize
	}

	if c.Router.QueueSize == 0 {
		c.Router.QueueSize = DefaultQueueSize
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
