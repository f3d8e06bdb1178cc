package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/meshroom/internal/config"
	"github.com/vovakirdan/meshroom/internal/core"
	"github.com/vovakirdan/meshroom/internal/liveness"
	"github.com/vovakirdan/meshroom/internal/metrics"
	transporthttp "github.com/vovakirdan/meshroom/internal/transport/http"
)

// App wires together core, liveness and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	monitor         *liveness.Monitor
	metrics         *metrics.Metrics
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.Addr == "" {
		return nil, errors.New("listen address is required")
	}

	m := metrics.New()

	hub := core.NewHub(core.NewRegistry(), core.HubConfig{
		DefaultCapacity: cfg.DefaultCapacity,
		Recorder:        m,
	}, logger)

	monitor := liveness.New(cfg.PingInterval, logger, func(core.SessionID) {
		m.LivenessEvicted()
	})

	server := transporthttp.NewServer(hub, monitor, m, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		monitor:         monitor,
		metrics:         m,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	// The hub outlives the listener so in-flight sessions can unregister during shutdown.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	go a.hub.Run(hubCtx)
	go a.monitor.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		return <-serverErr
	}
}
