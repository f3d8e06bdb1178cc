package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/meshroom/internal/config"
	"github.com/vovakirdan/meshroom/internal/core"
	"github.com/vovakirdan/meshroom/internal/liveness"
	"github.com/vovakirdan/meshroom/internal/metrics"
)

// NewServer builds an HTTP server with the relay routes.
// The WebSocket endpoint sits on the plain mux: it hijacks the connection,
// which gin's response writer refuses once headers are flushed.
func NewServer(hub *core.Hub, monitor *liveness.Monitor, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))
	if cfg.ForceHTTPS {
		engine.Use(ForceHTTPSMiddleware())
	}

	engine.GET("/health", healthHandler)
	engine.GET("/healthz", healthHandler)

	rooms := NewRoomHandlers(hub.Registry(), logger)
	engine.GET("/api/rooms", rooms.ListRooms)

	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	if cfg.StaticDir != "" {
		engine.NoRoute(gin.WrapH(stdhttp.FileServer(gin.Dir(cfg.StaticDir, false))))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodOptions},
	}).Handler(engine)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, monitor, m, cfg, logger))
	mux.Handle("/", corsHandler)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
