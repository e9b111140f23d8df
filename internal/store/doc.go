// Package store implements the State Reducer / Snapshot Store.
//
// The Store:
//   - Folds one tick payload at a time into a single growing snapshot
//   - Keeps the event log append-only for end-of-run export
//   - Merges metrics field-by-field, replaces grid and inventory when present
//   - Publishes every change to subscribed observers before Ingest returns
//
// Observers get read-only Snapshot values; the only writers are Ingest,
// the connectivity flag set by the connection supervisor, and the fields
// owned by the command client.
package store
