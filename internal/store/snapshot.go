package store

import (
	"encoding/json"
	"slices"

	"github.com/rickgao/simdash/internal/model"
)

// Snapshot is a read-only view of the store at one point in time.
//
// EventLog shares its backing array with the store and is capacity-clipped,
// so appending to it never reaches the store; its elements must not be
// modified. Every other slice, the grid and the metrics map are copies.
type Snapshot struct {
	CurrentTick     int64                  `json:"currentTick"`
	EventLog        []model.Event          `json:"eventLog"`
	Metrics         model.Metrics          `json:"metrics"`
	GridState       *model.GridState       `json:"gridState"`
	CustomerStates  []model.CustomerState  `json:"customerStates"`
	Inventory       []model.InventoryItem  `json:"inventory"`
	PendingRestocks []model.PendingRestock `json:"pendingRestocks"`

	// Not part of the tick merge.
	Connected         bool            `json:"connected"`
	SimulationRunning bool            `json:"simulationRunning"`
	Config            json.RawMessage `json:"config,omitempty"`

	// Version increments on every publish.
	Version uint64 `json:"version"`
}

// Stats contains reducer statistics.
type Stats struct {
	TicksApplied   int64
	EventsStored   int
	OutOfOrder     int64 // Payloads whose tick was <= the current tick
	LastTick       int64
	ObserverCount  int
	PublishedCount uint64
}

// initialState returns the zero-valued snapshot created at process start.
func initialState() Snapshot {
	return Snapshot{
		EventLog:        []model.Event{},
		Metrics:         model.DefaultMetrics(),
		CustomerStates:  []model.CustomerState{},
		Inventory:       []model.InventoryItem{},
		PendingRestocks: []model.PendingRestock{},
	}
}

// view copies the mutable parts of s. Must be called with the read lock held.
func (s *Snapshot) view() Snapshot {
	n := len(s.EventLog)
	return Snapshot{
		CurrentTick:       s.CurrentTick,
		EventLog:          s.EventLog[:n:n],
		Metrics:           s.Metrics.Clone(),
		GridState:         cloneGrid(s.GridState),
		CustomerStates:    slices.Clone(s.CustomerStates),
		Inventory:         slices.Clone(s.Inventory),
		PendingRestocks:   slices.Clone(s.PendingRestocks),
		Connected:         s.Connected,
		SimulationRunning: s.SimulationRunning,
		Config:            slices.Clone(s.Config),
		Version:           s.Version,
	}
}

func cloneGrid(g *model.GridState) *model.GridState {
	if g == nil {
		return nil
	}
	c := *g
	c.Occupied = slices.Clone(g.Occupied)
	c.PendingRestocks = slices.Clone(g.PendingRestocks)
	return &c
}
