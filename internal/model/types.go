package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingTick is returned by DecodeTick when a frame has no tick field.
var ErrMissingTick = errors.New("payload has no tick")

// -----------------------------------------------------------------------------
// Tick Payload
// -----------------------------------------------------------------------------

// TickPayload is one inbound message describing the state produced during a tick.
//
// Nil slices and a nil Grid mean the field was absent from the frame. A
// present-but-empty array decodes to a non-nil empty slice.
type TickPayload struct {
	Tick           int64           `json:"tick"`
	Events         []Event         `json:"events"`
	Grid           *GridState      `json:"grid,omitempty"`
	Metrics        Metrics         `json:"metrics,omitempty"`
	CustomerStates []CustomerState `json:"customerStates,omitempty"`
	Inventory      []InventoryItem `json:"inventory,omitempty"`
}

// tickWire distinguishes a missing tick from tick 0.
type tickWire struct {
	Tick           *int64          `json:"tick"`
	Events         []Event         `json:"events"`
	Grid           *GridState      `json:"grid"`
	Metrics        Metrics         `json:"metrics"`
	CustomerStates []CustomerState `json:"customerStates"`
	Inventory      []InventoryItem `json:"inventory"`
}

// DecodeTick parses one textual frame into a TickPayload.
func DecodeTick(data []byte) (TickPayload, error) {
	var w tickWire
	if err := json.Unmarshal(data, &w); err != nil {
		return TickPayload{}, fmt.Errorf("decode tick: %w", err)
	}
	if w.Tick == nil {
		return TickPayload{}, ErrMissingTick
	}

	return TickPayload{
		Tick:           *w.Tick,
		Events:         w.Events,
		Grid:           w.Grid,
		Metrics:        w.Metrics,
		CustomerStates: w.CustomerStates,
		Inventory:      w.Inventory,
	}, nil
}

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

// Metrics maps named counters and sums to their value.
type Metrics map[string]float64

// Known metric keys.
const (
	MetricPurchases  = "purchases"
	MetricComplaints = "complaints"
	MetricSilence    = "silence"
	MetricRestocks   = "restocks"
	MetricStockouts  = "stockouts"
	MetricRevenue    = "revenue"
)

// MetricKeys lists the KPI counters the backend reports, in display order.
var MetricKeys = []string{
	MetricPurchases,
	MetricComplaints,
	MetricSilence,
	MetricRestocks,
	MetricStockouts,
	MetricRevenue,
}

// DefaultMetrics returns every known metric at zero.
func DefaultMetrics() Metrics {
	m := make(Metrics, len(MetricKeys))
	for _, k := range MetricKeys {
		m[k] = 0
	}
	return m
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// -----------------------------------------------------------------------------
// Grid
// -----------------------------------------------------------------------------

// GridState is the spatial snapshot of the simulation.
type GridState struct {
	Width           int                `json:"width"`
	Height          int                `json:"height"`
	Occupied        []OccupiedPosition `json:"occupied"`
	PendingRestocks []PendingRestock   `json:"pendingRestocks,omitempty"`
}

// Agent types found in OccupiedPosition.AgentType.
const (
	AgentCustomer = "customer"
	AgentService  = "service"
)

// OccupiedPosition is one agent placed on the grid.
type OccupiedPosition struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	AgentID   string `json:"agentId"`
	AgentType string `json:"agentType"` // "customer" or "service"
}

// PendingRestock is a restock order that has not been delivered yet.
type PendingRestock struct {
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	Amount         int    `json:"amount"`
	DeliveryTick   int    `json:"deliveryTick"`
	OrderedTick    int    `json:"orderedTick"`
	TicksRemaining int    `json:"ticksRemaining"`
}

// -----------------------------------------------------------------------------
// Agents and Inventory
// -----------------------------------------------------------------------------

// CustomerState is the inferred hidden state of one customer.
type CustomerState struct {
	CustID           string  `json:"custId"`
	InferredState    string  `json:"inferredState"`
	Logprob          float64 `json:"logprob"`
	ObservationCount int     `json:"observationCount"`
}

// InventoryItem is the stock level of one SKU.
type InventoryItem struct {
	SKU           string  `json:"sku"`
	Title         string  `json:"title"`
	OnHand        int     `json:"onHand"`
	Threshold     int     `json:"threshold"`
	RestockAmount int     `json:"restockAmount"`
	Price         float64 `json:"price"`
}
