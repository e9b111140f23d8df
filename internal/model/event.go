package model

import (
	"encoding/json"
	"fmt"
)

// Event types emitted by the simulation.
const (
	EventObservation = "observation"
	EventInference   = "inference"
	EventMessage     = "message"
	EventInventory   = "inventory"
)

// Event is one entry of the simulation event log.
//
// Keys beyond the common ones are kept in Attrs and written back by
// MarshalJSON, so an exported log matches what the backend sent.
type Event struct {
	Type          string
	AgentID       string
	Obs           string
	InferredState string
	Logprob       *float64
	Tick          *int64
	Attrs         map[string]any
}

type eventWire struct {
	Type          string   `json:"type"`
	AgentID       string   `json:"agentId"`
	Obs           string   `json:"obs"`
	InferredState string   `json:"inferredState"`
	Logprob       *float64 `json:"logprob"`
	Tick          *int64   `json:"tick"`
}

var eventKeys = map[string]struct{}{
	"type":          {},
	"agentId":       {},
	"obs":           {},
	"inferredState": {},
	"logprob":       {},
	"tick":          {},
}

// UnmarshalJSON decodes the common fields and collects the rest into Attrs.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	*e = Event{
		Type:          w.Type,
		AgentID:       w.AgentID,
		Obs:           w.Obs,
		InferredState: w.InferredState,
		Logprob:       w.Logprob,
		Tick:          w.Tick,
	}

	for k, raw := range all {
		if _, known := eventKeys[k]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode event attr %q: %w", k, err)
		}
		if e.Attrs == nil {
			e.Attrs = make(map[string]any)
		}
		e.Attrs[k] = v
	}

	return nil
}

// MarshalJSON writes the event as a flat object.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attrs)+len(eventKeys))
	for k, v := range e.Attrs {
		out[k] = v
	}

	out["type"] = e.Type
	if e.AgentID != "" {
		out["agentId"] = e.AgentID
	}
	if e.Obs != "" {
		out["obs"] = e.Obs
	}
	if e.InferredState != "" {
		out["inferredState"] = e.InferredState
	}
	if e.Logprob != nil {
		out["logprob"] = *e.Logprob
	}
	if e.Tick != nil {
		out["tick"] = *e.Tick
	}

	return json.Marshal(out)
}
