package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/simdash/internal/connection"
	"github.com/rickgao/simdash/internal/logging"
	"github.com/rickgao/simdash/internal/model"
)

// previewLen bounds how much of a rejected frame is logged.
const previewLen = 64

// Router decodes inbound frames and hands tick payloads to a Sink.
//
// HandleFrame only enqueues, so the supervisor's read path never waits on
// decoding or observers. A single goroutine drains the queue, which keeps
// payloads in the order the transport delivered them.
type Router struct {
	cfg    RouterConfig
	sink   Sink
	logger *slog.Logger

	queue *Queue[connection.Frame]

	// Lifecycle
	startOnce sync.Once
	wg        sync.WaitGroup

	// Stats
	received    atomic.Int64
	applied     atomic.Int64
	parseErrors atomic.Int64
}

// NewRouter creates a new frame router.
func NewRouter(cfg RouterConfig, sink Sink, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		queue:  NewQueue[connection.Frame](cfg.QueueSize),
	}
}

// HandleFrame implements connection.FrameHandler.
func (r *Router) HandleFrame(f connection.Frame) {
	r.received.Add(1)
	if !r.queue.Push(f) {
		r.logger.Debug("frame dropped after stop", "conn_id", f.ConnID)
	}
}

// Start begins decoding. The router drains and stops once ctx is done.
func (r *Router) Start(ctx context.Context) error {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.decodeLoop()

		go func() {
			<-ctx.Done()
			r.queue.Close()
		}()

		r.logger.Info("frame router started", "queue_size", r.cfg.QueueSize)
	})
	return nil
}

// Stop closes the queue and waits for queued frames to be applied.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info("stopping frame router")

	r.queue.Close()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("frame router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("frame router stop timed out", "backlog", r.queue.Len())
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		FramesReceived: r.received.Load(),
		TicksApplied:   r.applied.Load(),
		ParseErrors:    r.parseErrors.Load(),
		Queue:          r.queue.Stats(),
	}
}

// decodeLoop is the single consumer of the queue.
func (r *Router) decodeLoop() {
	defer r.wg.Done()

	for {
		f, ok := r.queue.Pop()
		if !ok {
			return
		}
		r.route(f)
	}
}

// route decodes one frame. Frames that are not tick payloads are dropped
// and the stream carries on.
func (r *Router) route(f connection.Frame) {
	p, err := model.DecodeTick(f.Data)
	if err != nil {
		r.parseErrors.Add(1)
		r.logger.Log(context.Background(), logging.LevelTrace, "discarding frame",
			"conn_id", f.ConnID,
			"error", err,
			"preview", preview(f.Data),
		)
		return
	}

	r.sink.Ingest(p)
	r.applied.Add(1)
}

func preview(data []byte) string {
	if len(data) <= previewLen {
		return string(data)
	}
	return string(data[:previewLen]) + "..."
}
