package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testSupervisorConfig(url string, floor, ceiling time.Duration) SupervisorConfig {
	cfg := DefaultSupervisorConfig()
	cfg.Client = testClientConfig(url)
	cfg.Client.HeartbeatInterval = 0
	cfg.BackoffFloor = floor
	cfg.BackoffCeiling = ceiling
	return cfg
}

// stateRecorder collects state transitions reported by a Supervisor.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{ch: make(chan State, 64)}
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	select {
	case r.ch <- s:
	default:
	}
}

func (r *stateRecorder) waitFor(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if s == want {
				return
			}
		case <-timeout:
			t.Fatalf("timeout waiting for state %s", want)
		}
	}
}

func (r *stateRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func TestSupervisor_StateTransitions(t *testing.T) {
	release := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		<-release
	})
	defer server.Close()

	rec := newStateRecorder()
	sup := NewSupervisor(
		testSupervisorConfig(wsURL(server), time.Hour, time.Hour),
		nil, nil,
		WithStateListener(rec.record),
	)

	if got := sup.State(); got != StateClosed {
		t.Fatalf("initial state = %s, want closed", got)
	}

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	rec.waitFor(t, StateOpen)

	close(release)
	rec.waitFor(t, StateClosed)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	want := []State{StateConnecting, StateOpen, StateClosed}
	got := rec.snapshot()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSupervisor_BackoffSequence(t *testing.T) {
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	// Attempts 1-3 are refused, attempt 4 opens and closes at once, the
	// rest are refused again.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n != 4 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	delays := make(chan time.Duration, 16)
	sup := NewSupervisor(
		testSupervisorConfig(wsURL(server), 10*time.Millisecond, 40*time.Millisecond),
		nil, nil,
		WithRetryListener(func(attempt int, d time.Duration) {
			delays <- d
		}),
	)

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop(context.Background())

	want := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		10 * time.Millisecond, // reset after the successful open
		20 * time.Millisecond,
	}

	for i, w := range want {
		select {
		case got := <-delays:
			if got != w {
				t.Errorf("retry %d: delay %v, want %v", i+1, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for retry %d", i+1)
		}
	}

	stats := sup.Stats()
	if stats.Opens != 1 {
		t.Errorf("Opens = %d, want 1", stats.Opens)
	}
	if stats.Failures < 4 {
		t.Errorf("Failures = %d, want at least 4", stats.Failures)
	}
}

func TestSupervisor_StopCancelsPendingReconnect(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scheduled := make(chan struct{}, 1)
	sup := NewSupervisor(
		testSupervisorConfig(wsURL(server), time.Hour, time.Hour),
		nil, nil,
		WithRetryListener(func(int, time.Duration) {
			scheduled <- struct{}{}
		}),
	)

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-scheduled:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reconnect to be scheduled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop did not cancel pending reconnect: %v", err)
	}

	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if got := sup.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestSupervisor_StopClosesLiveConnection(t *testing.T) {
	serverDone := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		drain(conn)
		close(serverDone)
	})
	defer server.Close()

	rec := newStateRecorder()
	sup := NewSupervisor(
		testSupervisorConfig(wsURL(server), time.Hour, time.Hour),
		nil, nil,
		WithStateListener(rec.record),
	)

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rec.waitFor(t, StateOpen)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-serverDone:
	case <-time.After(time.Second):
		t.Fatal("server connection not closed after Stop")
	}

	if got := sup.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
	if got := sup.Stats().Attempts; got != 1 {
		t.Errorf("Attempts = %d, want 1", got)
	}
}

func TestSupervisor_DoubleStart(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	sup := NewSupervisor(testSupervisorConfig(wsURL(server), time.Hour, time.Hour), nil, nil)

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer sup.Stop(context.Background())

	if err := sup.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start: expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	sup := NewSupervisor(DefaultSupervisorConfig(), nil, nil)
	if err := sup.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestSupervisor_ForwardsFrames(t *testing.T) {
	payloads := []string{`{"tick": 1}`, `{"tick": 2}`, `{"tick": 3}`}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}
		drain(conn)
	})
	defer server.Close()

	got := make(chan Frame, len(payloads))
	handler := FrameHandlerFunc(func(f Frame) { got <- f })

	sup := NewSupervisor(testSupervisorConfig(wsURL(server), time.Hour, time.Hour), handler, nil)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sup.Stop(context.Background())

	for i, want := range payloads {
		select {
		case f := <-got:
			if string(f.Data) != want {
				t.Errorf("frame %d = %q, want %q", i, f.Data, want)
			}
			if f.ConnID != 1 {
				t.Errorf("frame %d ConnID = %d, want 1", i, f.ConnID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for frame %d", i)
		}
	}

	if n := sup.Stats().FramesReceived; n != int64(len(payloads)) {
		t.Errorf("FramesReceived = %d, want %d", n, len(payloads))
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
