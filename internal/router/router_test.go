package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/simdash/internal/connection"
	"github.com/rickgao/simdash/internal/model"
	"github.com/rickgao/simdash/internal/store"
)

// recordingSink collects every payload it is given.
type recordingSink struct {
	mu    sync.Mutex
	ticks []model.TickPayload
}

func (s *recordingSink) Ingest(p model.TickPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, p)
}

func (s *recordingSink) tickNumbers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.ticks))
	for i, p := range s.ticks {
		out[i] = p.Tick
	}
	return out
}

func frame(data string) connection.Frame {
	return connection.Frame{Data: []byte(data), ConnID: 1, ReceivedAt: time.Now()}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	assert.Equal(t, 1024, cfg.QueueSize)
}

func TestRouter_StartStop(t *testing.T) {
	r := NewRouter(DefaultRouterConfig(), &recordingSink{}, nil)

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(stopCtx))
}

func TestRouter_DecodesInOrder(t *testing.T) {
	sink := &recordingSink{}
	r := NewRouter(RouterConfig{QueueSize: 2}, sink, nil)

	// Queue everything before the decoder runs.
	for i := 1; i <= 50; i++ {
		r.HandleFrame(frame(`{"tick": ` + strconv.Itoa(i) + `, "events": []}`))
	}

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))

	got := sink.tickNumbers()
	require.Len(t, got, 50)
	for i, tick := range got {
		assert.Equal(t, int64(i+1), tick)
	}

	stats := r.Stats()
	assert.Equal(t, int64(50), stats.FramesReceived)
	assert.Equal(t, int64(50), stats.TicksApplied)
	assert.Equal(t, int64(0), stats.ParseErrors)
	assert.Equal(t, 50, stats.Queue.HighWater)
}

func TestRouter_DiscardsNonTickFrames(t *testing.T) {
	sink := &recordingSink{}
	r := NewRouter(DefaultRouterConfig(), sink, nil)
	require.NoError(t, r.Start(context.Background()))

	r.HandleFrame(frame(`{"tick": 1}`))
	r.HandleFrame(frame(`pong`))
	r.HandleFrame(frame(`{"events": []}`))
	r.HandleFrame(frame(`{"tick": "soon"}`))
	r.HandleFrame(frame(`{"tick": 2}`))

	require.NoError(t, r.Stop(context.Background()))

	assert.Equal(t, []int64{1, 2}, sink.tickNumbers())

	stats := r.Stats()
	assert.Equal(t, int64(5), stats.FramesReceived)
	assert.Equal(t, int64(2), stats.TicksApplied)
	assert.Equal(t, int64(3), stats.ParseErrors)
}

func TestRouter_ContextCancelStops(t *testing.T) {
	sink := &recordingSink{}
	r := NewRouter(DefaultRouterConfig(), sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))

	r.HandleFrame(frame(`{"tick": 9}`))
	cancel()

	require.Eventually(t, func() bool {
		r.queue.mu.Lock()
		closed := r.queue.closed
		r.queue.mu.Unlock()
		return closed && len(sink.tickNumbers()) == 1
	}, time.Second, 5*time.Millisecond)

	// Frames after shutdown are counted but not applied.
	r.HandleFrame(frame(`{"tick": 10}`))
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, r.Stop(stopCtx))

	assert.Equal(t, []int64{9}, sink.tickNumbers())
	assert.Equal(t, int64(2), r.Stats().FramesReceived)
}

func TestRouter_SinkFunc(t *testing.T) {
	var got []int64
	r := NewRouter(DefaultRouterConfig(), SinkFunc(func(p model.TickPayload) {
		got = append(got, p.Tick)
	}), nil)

	r.HandleFrame(frame(`{"tick": 4}`))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))

	assert.Equal(t, []int64{4}, got)
}

// TestPipeline_MalformedFrameKeepsConnection drives a real stream through
// supervisor, router and store.
func TestPipeline_MalformedFrameKeepsConnection(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frames := []string{
			`{"tick": 1, "events": [{"type": "observation", "agentId": "cust_1", "obs": "browse"}], "metrics": {"purchases": 1}}`,
			`garbage`,
			`{"tick": 2, "events": [{"type": "inference", "agentId": "cust_1", "inferredState": "curious"}], "metrics": {"revenue": 12.5}}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	st := store.New(nil)
	r := NewRouter(DefaultRouterConfig(), st, nil)

	cfg := connection.DefaultSupervisorConfig()
	cfg.Client.URL = "ws" + strings.TrimPrefix(server.URL, "http")
	cfg.BackoffFloor = time.Hour
	cfg.BackoffCeiling = time.Hour

	sup := connection.NewSupervisor(cfg, r, nil,
		connection.WithStateListener(func(s connection.State) {
			st.SetConnected(s == connection.StateOpen)
		}),
	)

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	require.NoError(t, sup.Start(ctx))

	require.Eventually(t, func() bool {
		return st.Snapshot().CurrentTick == 2
	}, 2*time.Second, 5*time.Millisecond)

	snap := st.Snapshot()
	assert.True(t, snap.Connected)
	require.Len(t, snap.EventLog, 2)
	assert.Equal(t, model.EventObservation, snap.EventLog[0].Type)
	assert.Equal(t, model.EventInference, snap.EventLog[1].Type)
	assert.Equal(t, 1.0, snap.Metrics[model.MetricPurchases])
	assert.Equal(t, 12.5, snap.Metrics[model.MetricRevenue])

	assert.Equal(t, int64(1), r.Stats().ParseErrors)
	assert.Equal(t, int64(1), sup.Stats().Attempts)
	assert.Equal(t, connection.StateOpen, sup.State())

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, sup.Stop(stopCtx))
	require.NoError(t, r.Stop(stopCtx))

	assert.False(t, st.Snapshot().Connected)
}
