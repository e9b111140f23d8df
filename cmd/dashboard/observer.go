package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/rickgao/simdash/internal/connection"
	"github.com/rickgao/simdash/internal/router"
	"github.com/rickgao/simdash/internal/store"
)

// newObserverHandler creates the read-only HTTP surface over the store.
func newObserverHandler(sessionID uuid.UUID, st *store.Store, rtr *router.Router, sup *connection.Supervisor, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		snap := st.Snapshot()

		health := struct {
			Status      string `json:"status"`
			SessionID   string `json:"session_id"`
			Connected   bool   `json:"connected"`
			State       string `json:"state"`
			CurrentTick int64  `json:"current_tick"`
			Events      int    `json:"events"`
		}{
			Status:      "healthy",
			SessionID:   sessionID.String(),
			Connected:   snap.Connected,
			State:       sup.State().String(),
			CurrentTick: snap.CurrentTick,
			Events:      len(snap.EventLog),
		}

		status := http.StatusOK
		if !snap.Connected {
			health.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health, logger)
	})

	mux.HandleFunc("GET /snapshot", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Snapshot(), logger)
	})

	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		since := 0
		if v := r.URL.Query().Get("since"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "since must be a non-negative integer", http.StatusBadRequest)
				return
			}
			since = n
		}

		events := st.EventsSince(since)
		writeJSON(w, http.StatusOK, map[string]any{
			"since":  since,
			"next":   since + len(events),
			"events": events,
		}, logger)
	})

	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, r *http.Request) {
		supStats := sup.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID.String(),
			"connection": map[string]any{
				"state":           supStats.State.String(),
				"attempts":        supStats.Attempts,
				"opens":           supStats.Opens,
				"failures":        supStats.Failures,
				"closes":          supStats.Closes,
				"frames_received": supStats.FramesReceived,
				"next_delay":      supStats.NextDelay.String(),
			},
			"router": rtr.Stats(),
			"store":  st.Stats(),
		}, logger)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}
