// Package connection implements the Connection Supervisor component.
//
// The Connection Supervisor:
//   - Maintains at most one streaming WebSocket connection to the simulation backend
//   - Derives the stream endpoint from the page origin (https → wss)
//   - Sends a literal heartbeat token while the connection is open
//   - Reconnects with bounded exponential backoff, forever, until stopped
//   - Hands every inbound frame, in transport order, to a FrameHandler
package connection
