package store

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rickgao/simdash/internal/model"
)

// Observer receives every published snapshot. Observers run synchronously
// inside the publishing call and must not call back into a mutating method.
type Observer func(Snapshot)

type observerEntry struct {
	id uuid.UUID
	fn Observer
}

// Store owns the dashboard snapshot.
type Store struct {
	logger *slog.Logger

	// publishMu serializes mutations together with their notifications so
	// observers see snapshots in version order.
	publishMu sync.Mutex

	mu       sync.RWMutex
	state    Snapshot
	seenTick bool
	stats    Stats

	obsMu     sync.Mutex
	observers []observerEntry
}

// New creates a store holding the zero-valued initial snapshot.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		state:  initialState(),
	}
}

// Ingest folds one tick payload into the snapshot and publishes the result.
// Ownership of the payload's slices and grid passes to the store.
//
// Field rules:
//   - CurrentTick is set to the payload tick, even when it is not newer
//   - Events are appended in batch order
//   - Metrics are merged key by key
//   - Grid and Inventory are replaced when present, retained otherwise
//   - CustomerStates are replaced when present, emptied otherwise
//   - PendingRestocks come from the payload grid, empty when it has none
func (s *Store) Ingest(p model.TickPayload) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()

	if s.seenTick && p.Tick <= s.state.CurrentTick {
		s.stats.OutOfOrder++
		s.logger.Debug("applying non-increasing tick",
			"tick", p.Tick,
			"current_tick", s.state.CurrentTick,
		)
	}
	s.seenTick = true

	st := &s.state
	st.CurrentTick = p.Tick
	st.EventLog = append(st.EventLog, p.Events...)

	for k, v := range p.Metrics {
		st.Metrics[k] = v
	}

	if p.Grid != nil {
		st.GridState = p.Grid
	}

	if p.CustomerStates != nil {
		st.CustomerStates = p.CustomerStates
	} else {
		st.CustomerStates = []model.CustomerState{}
	}

	if p.Inventory != nil {
		st.Inventory = p.Inventory
	}

	if p.Grid != nil && p.Grid.PendingRestocks != nil {
		st.PendingRestocks = p.Grid.PendingRestocks
	} else {
		st.PendingRestocks = []model.PendingRestock{}
	}

	s.stats.TicksApplied++
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetConnected records the streaming connection's state. Observers are
// notified only when the flag changes.
func (s *Store) SetConnected(connected bool) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.state.Connected == connected {
		s.mu.Unlock()
		return
	}
	s.state.Connected = connected
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetSimulationRunning records whether the backend simulation is running.
func (s *Store) SetSimulationRunning(running bool) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.state.SimulationRunning == running {
		s.mu.Unlock()
		return
	}
	s.state.SimulationRunning = running
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetConfig stores the simulation configuration accepted by the backend.
// Inventory is replaced by the given items, or emptied when nil.
func (s *Store) SetConfig(cfg json.RawMessage, inventory []model.InventoryItem) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.state.Config = slices.Clone(cfg)
	if inventory != nil {
		s.state.Inventory = inventory
	} else {
		s.state.Inventory = []model.InventoryItem{}
	}
	snap := s.publishLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.view()
}

// EventsSince returns the events at or after offset in the log.
// Offsets past the end yield an empty slice.
func (s *Store) EventsSince(offset int) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.state.EventLog)
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return []model.Event{}
	}
	return s.state.EventLog[offset:n:n]
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	stats := s.stats
	stats.EventsStored = len(s.state.EventLog)
	stats.LastTick = s.state.CurrentTick
	stats.PublishedCount = s.state.Version
	s.mu.RUnlock()

	s.obsMu.Lock()
	stats.ObserverCount = len(s.observers)
	s.obsMu.Unlock()

	return stats
}

// Subscribe registers fn for every future publish. The returned function
// removes it; calling it more than once is a no-op.
func (s *Store) Subscribe(fn Observer) (uuid.UUID, func()) {
	id := uuid.New()

	s.obsMu.Lock()
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.obsMu.Unlock()

	var once sync.Once
	return id, func() {
		once.Do(func() { s.unsubscribe(id) })
	}
}

func (s *Store) unsubscribe(id uuid.UUID) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.observers = slices.DeleteFunc(s.observers, func(e observerEntry) bool {
		return e.id == id
	})
}

// publishLocked bumps the version and returns the view to publish.
// Must be called with mu held for writing.
func (s *Store) publishLocked() Snapshot {
	s.state.Version++
	return s.state.view()
}

// notify delivers snap to observers in subscription order.
func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	observers := slices.Clone(s.observers)
	s.obsMu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
}
