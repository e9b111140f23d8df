package config

import "time"

// DashboardConfig is the root configuration for a dashboard instance.
type DashboardConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Stream   StreamConfig   `yaml:"stream"`
	Router   RouterConfig   `yaml:"router"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this dashboard.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// StreamConfig holds the streaming connection settings.
type StreamConfig struct {
	Origin            string        `yaml:"origin"` // Page origin, e.g. https://sim.example.com
	Path              string        `yaml:"path"`   // Stream path relative to the origin
	BackoffFloor      time.Duration `yaml:"backoff_floor"`
	BackoffCeiling    time.Duration `yaml:"backoff_ceiling"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatToken    string        `yaml:"heartbeat_token"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// RouterConfig holds frame queue settings.
type RouterConfig struct {
	QueueSize int `yaml:"queue_size"` // Initial capacity; the queue grows as needed
}

// HTTPConfig holds the observer HTTP surface settings.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // info, debug, trace
	Format string `yaml:"format"` // text or json
}
