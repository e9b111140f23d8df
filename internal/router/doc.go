// Package router sits between the Connection Supervisor and the Store.
//
// Frames are queued as they arrive and decoded by a single goroutine, so
// tick payloads reach the Sink in the order the stream delivered them.
// Frames that do not decode as a tick payload are counted and dropped.
package router
