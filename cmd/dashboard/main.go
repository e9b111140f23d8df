package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/simdash/internal/config"
	"github.com/rickgao/simdash/internal/connection"
	"github.com/rickgao/simdash/internal/logging"
	"github.com/rickgao/simdash/internal/router"
	"github.com/rickgao/simdash/internal/store"
	"github.com/rickgao/simdash/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/dashboard.example.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(logger)

	sessionID := uuid.New()
	logger = logger.With("session_id", sessionID.String())

	logger.Info("starting dashboard",
		"version", version.Version,
		"commit", version.Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	streamURL, err := connection.StreamURL(cfg.Stream.Origin, cfg.Stream.Path)
	if err != nil {
		logger.Error("invalid stream origin", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Pipeline: supervisor -> router -> store
	st := store.New(logger.With("component", "store"))
	rtr := router.NewRouter(router.RouterConfig{
		QueueSize: cfg.Router.QueueSize,
	}, st, logger.With("component", "router"))

	sup := connection.NewSupervisor(
		supervisorConfig(cfg, streamURL),
		rtr,
		logger.With("component", "connection"),
		connection.WithStateListener(func(s connection.State) {
			st.SetConnected(s == connection.StateOpen)
		}),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           newObserverHandler(sessionID, st, rtr, sup, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := rtr.Start(gctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}
	if err := sup.Start(gctx); err != nil {
		logger.Error("failed to start connection supervisor", "error", err)
		os.Exit(1)
	}

	g.Go(func() error {
		logger.Info("starting observer server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("observer server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		var errs []error
		if err := sup.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop supervisor: %w", err))
		}
		if err := rtr.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop router: %w", err))
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown observer server: %w", err))
		}
		return errors.Join(errs...)
	})

	logger.Info("dashboard running",
		"stream_url", streamURL,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("dashboard stopped with error", "error", err)
		os.Exit(1)
	}

	stats := st.Stats()
	logger.Info("dashboard stopped",
		"ticks_applied", stats.TicksApplied,
		"events_stored", stats.EventsStored,
	)
}

// supervisorConfig maps the stream section onto the supervisor settings.
func supervisorConfig(cfg *config.DashboardConfig, streamURL string) connection.SupervisorConfig {
	return connection.SupervisorConfig{
		Client: connection.ClientConfig{
			URL:               streamURL,
			HeartbeatInterval: cfg.Stream.HeartbeatInterval,
			HeartbeatToken:    cfg.Stream.HeartbeatToken,
			HandshakeTimeout:  cfg.Stream.HandshakeTimeout,
			WriteTimeout:      cfg.Stream.WriteTimeout,
			BufferSize:        cfg.Stream.BufferSize,
		},
		BackoffFloor:   cfg.Stream.BackoffFloor,
		BackoffCeiling: cfg.Stream.BackoffCeiling,
	}
}
