package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Supervisor keeps one streaming connection alive across transient failures.
//
// State machine:
//
//	Closed --Start--> Connecting --success--> Open --close/error--> Closed
//	Closed --retry timer--> Connecting
//	Connecting --failure--> Closed
//
// Every failure is retried after the current backoff delay; attempts only
// stop when Stop is called or the Start context is cancelled.
type Supervisor struct {
	cfg     SupervisorConfig
	handler FrameHandler
	logger  *slog.Logger

	backoff *Backoff

	// Hooks
	onState   func(State)
	onRetry   func(attempt int, delay time.Duration)
	newClient func(cfg ClientConfig, connID int, logger *slog.Logger) Client

	// Lifecycle
	mu      sync.Mutex
	state   State
	client  Client // Live connection, nil unless Open
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Stats
	attempts atomic.Int64
	opens    atomic.Int64
	failures atomic.Int64
	closes   atomic.Int64
	frames   atomic.Int64
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithStateListener registers fn to be called on every state transition.
// fn runs on the supervisor goroutine.
func WithStateListener(fn func(State)) Option {
	return func(s *Supervisor) {
		s.onState = fn
	}
}

// WithRetryListener registers fn to be called each time a reconnect is
// scheduled, with the number of the attempt that just ended and the delay
// before the next one.
func WithRetryListener(fn func(attempt int, delay time.Duration)) Option {
	return func(s *Supervisor) {
		s.onRetry = fn
	}
}

// WithDialer sets the WebSocket dialer used for every attempt.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Supervisor) {
		s.cfg.Client.Dialer = d
	}
}

// NewSupervisor creates a new Connection Supervisor. The supervisor starts
// in StateClosed and does nothing until Start is called.
func NewSupervisor(cfg SupervisorConfig, handler FrameHandler, logger *slog.Logger, opts ...Option) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if handler == nil {
		handler = FrameHandlerFunc(func(Frame) {})
	}

	s := &Supervisor{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		backoff:   NewBackoff(cfg.BackoffFloor, cfg.BackoffCeiling),
		newClient: NewClient,
		state:     StateClosed,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins connecting in the background.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)

	s.logger.Info("connection supervisor started",
		"url", s.cfg.Client.URL,
		"backoff_floor", s.cfg.BackoffFloor,
		"backoff_ceiling", s.cfg.BackoffCeiling,
	)

	return nil
}

// Stop cancels any pending reconnect, closes the live connection and waits
// for the supervisor goroutine to exit. No attempt is made after Stop.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	live := s.client
	s.mu.Unlock()

	s.logger.Info("stopping connection supervisor")

	cancel()
	if live != nil {
		live.Close()
	}

	select {
	case <-s.done:
		s.logger.Info("connection supervisor stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("connection supervisor stop timed out")
		return ctx.Err()
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns current statistics.
func (s *Supervisor) Stats() SupervisorStats {
	return SupervisorStats{
		State:          s.State(),
		Attempts:       s.attempts.Load(),
		Opens:          s.opens.Load(),
		Failures:       s.failures.Load(),
		Closes:         s.closes.Load(),
		FramesReceived: s.frames.Load(),
		NextDelay:      s.backoff.Current(),
	}
}

// run is the supervisor goroutine: one iteration per connection attempt.
func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}

		s.attempts.Add(1)
		s.setState(StateConnecting)

		client := s.newClient(s.cfg.Client, attempt, s.logger.With("conn_id", attempt))
		if err := client.Connect(ctx); err != nil {
			s.failures.Add(1)
			s.setState(StateClosed)
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("connection attempt failed",
				"conn_id", attempt,
				"error", err,
			)
		} else {
			if !s.open(client) {
				// Stop won the race with the dial.
				client.Close()
				s.setState(StateClosed)
				return
			}

			s.pump(ctx, client)

			s.detach()
			client.Close()
			s.closes.Add(1)
			s.setState(StateClosed)

			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("connection closed",
				"conn_id", attempt,
				"error", client.Err(),
			)
		}

		delay := s.backoff.Next()
		if s.onRetry != nil {
			s.onRetry(attempt, delay)
		}
		s.logger.Info("scheduling reconnect",
			"conn_id", attempt,
			"delay", delay,
		)

		if !s.wait(ctx, delay) {
			return
		}
	}
}

// open records client as the live connection and resets the backoff.
// It returns false if Stop has already been called.
func (s *Supervisor) open(client Client) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.client = client
	s.mu.Unlock()

	s.backoff.Reset()
	s.opens.Add(1)
	s.setState(StateOpen)

	s.logger.Info("stream connected", "url", s.cfg.Client.URL)
	return true
}

// detach forgets the live connection.
func (s *Supervisor) detach() {
	s.mu.Lock()
	s.client = nil
	s.mu.Unlock()
}

// pump hands frames to the handler until the connection ends or ctx is done.
func (s *Supervisor) pump(ctx context.Context, client Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-client.Messages():
			if !ok {
				return
			}
			s.frames.Add(1)
			s.handler.HandleFrame(frame)
		}
	}
}

// wait blocks for d or until ctx is done. The timer is the only pending
// work between attempts; cancelling ctx stops it.
func (s *Supervisor) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// setState records a transition and notifies the listener.
func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	if s.onState != nil {
		s.onState(state)
	}
}
