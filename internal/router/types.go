package router

import (
	"github.com/rickgao/simdash/internal/model"
)

// RouterConfig holds configuration for the frame router.
type RouterConfig struct {
	QueueSize int // Initial queue capacity. Default: 1024
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueSize: 1024,
	}
}

// Sink consumes decoded tick payloads in arrival order.
type Sink interface {
	Ingest(p model.TickPayload)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(model.TickPayload)

func (fn SinkFunc) Ingest(p model.TickPayload) {
	fn(p)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived int64
	TicksApplied   int64
	ParseErrors    int64 // Frames that were not tick payloads (including heartbeat replies)
	Queue          QueueStats
}
