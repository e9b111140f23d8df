package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *DashboardConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Stream.validate("stream"); err != nil {
		return err
	}

	if c.Router.QueueSize < 1 {
		return errors.New("router.queue_size must be >= 1")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (s *StreamConfig) validate(prefix string) error {
	if s.Origin == "" {
		return fmt.Errorf("%s.origin is required", prefix)
	}
	u, err := url.Parse(s.Origin)
	if err != nil {
		return fmt.Errorf("%s.origin: %w", prefix, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s.origin scheme %q is not supported", prefix, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s.origin host is required", prefix)
	}
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("%s.path must start with /", prefix)
	}
	if s.BackoffFloor <= 0 {
		return fmt.Errorf("%s.backoff_floor must be > 0", prefix)
	}
	if s.BackoffCeiling < s.BackoffFloor {
		return fmt.Errorf("%s.backoff_ceiling (%v) cannot be below backoff_floor (%v)", prefix, s.BackoffCeiling, s.BackoffFloor)
	}
	if s.HeartbeatInterval <= 0 {
		return fmt.Errorf("%s.heartbeat_interval must be > 0", prefix)
	}
	if s.HeartbeatToken == "" {
		return fmt.Errorf("%s.heartbeat_token is required", prefix)
	}
	if s.BufferSize < 1 {
		return fmt.Errorf("%s.buffer_size must be >= 1", prefix)
	}
	return nil
}
