// streamtest connects to the simulation stream and prints every applied
// snapshot to the console.
// Usage: go run ./cmd/streamtest --config configs/dashboard.example.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickgao/simdash/internal/config"
	"github.com/rickgao/simdash/internal/connection"
	"github.com/rickgao/simdash/internal/logging"
	"github.com/rickgao/simdash/internal/model"
	"github.com/rickgao/simdash/internal/router"
	"github.com/rickgao/simdash/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full snapshot JSON")
	flag.Parse()

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := logging.NewLogger("debug", cfg.Log.Format, os.Stdout)

	streamURL, err := connection.StreamURL(cfg.Stream.Origin, cfg.Stream.Path)
	if err != nil {
		logger.Error("invalid stream origin", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	st := store.New(logger)
	rtr := router.NewRouter(router.RouterConfig{QueueSize: cfg.Router.QueueSize}, st, logger)

	supCfg := connection.DefaultSupervisorConfig()
	supCfg.Client.URL = streamURL
	supCfg.Client.HeartbeatInterval = cfg.Stream.HeartbeatInterval
	supCfg.Client.HeartbeatToken = cfg.Stream.HeartbeatToken
	supCfg.BackoffFloor = cfg.Stream.BackoffFloor
	supCfg.BackoffCeiling = cfg.Stream.BackoffCeiling

	sup := connection.NewSupervisor(supCfg, rtr, logger,
		connection.WithStateListener(func(s connection.State) {
			fmt.Printf("[STATE] %s\n", s)
			st.SetConnected(s == connection.StateOpen)
		}),
		connection.WithRetryListener(func(attempt int, delay time.Duration) {
			fmt.Printf("[RETRY] attempt=%d next_in=%s\n", attempt, delay)
		}),
	)

	// Console observer
	var lastLen int
	_, unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		if *verbose {
			data, _ := json.MarshalIndent(snap, "", "  ")
			fmt.Printf("[SNAPSHOT] %s\n", data)
			return
		}
		newEvents := len(snap.EventLog) - lastLen
		lastLen = len(snap.EventLog)
		fmt.Printf("[TICK] tick=%d new_events=%d total_events=%d connected=%t %s\n",
			snap.CurrentTick, newEvents, len(snap.EventLog), snap.Connected, formatMetrics(snap.Metrics))
	})
	defer unsubscribe()

	logger.Info("starting router")
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	logger.Info("starting connection supervisor", "url", streamURL)
	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start connection supervisor", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				supStats := sup.Stats()
				routerStats := rtr.Stats()
				storeStats := st.Stats()
				logger.Info("stats",
					"state", supStats.State.String(),
					"attempts", supStats.Attempts,
					"frames", supStats.FramesReceived,
					"ticks_applied", routerStats.TicksApplied,
					"parse_errors", routerStats.ParseErrors,
					"queue_len", routerStats.Queue.Len,
					"events_stored", storeStats.EventsStored,
					"out_of_order", storeStats.OutOfOrder,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	sup.Stop(shutdownCtx)
	rtr.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

// formatMetrics renders known metrics in display order.
func formatMetrics(m model.Metrics) string {
	parts := make([]string, 0, len(model.MetricKeys))
	for _, k := range model.MetricKeys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, m[k]))
	}
	return strings.Join(parts, " ")
}
