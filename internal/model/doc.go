// Package model defines the wire types pushed by the simulation backend.
//
// All types mirror the JSON tick payload broadcast on the stream endpoint.
//
// Conventions:
//   - JSON keys: camelCase, as emitted by the backend
//   - Ticks: int64 simulation steps, starting at 1
//   - Optional payload fields: absent and null are equivalent
package model
