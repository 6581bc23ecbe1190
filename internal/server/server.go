// Package server wires the session core, providers, and HTTP surface.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BlockShell/core/internal/api/middleware"
	"github.com/GriffinCanCode/BlockShell/core/internal/assist"
	"github.com/GriffinCanCode/BlockShell/core/internal/config"
	"github.com/GriffinCanCode/BlockShell/core/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BlockShell/core/internal/logging"
	"github.com/GriffinCanCode/BlockShell/core/internal/providers/terminal"
	"github.com/GriffinCanCode/BlockShell/core/internal/pty"
	"github.com/GriffinCanCode/BlockShell/core/internal/service"
	"github.com/GriffinCanCode/BlockShell/core/internal/term"
	"github.com/GriffinCanCode/BlockShell/core/internal/ws"
)

// Server wraps the HTTP server and core dependencies.
type Server struct {
	cfg      *config.Config
	log      *logging.Logger
	router   *gin.Engine
	http     *http.Server
	bus      *term.Bus
	registry *term.Registry
	history  *term.History
	cache    *term.Cache
	provider *terminal.Provider
	services *service.Registry
	metrics  *monitoring.Metrics
}

// New assembles a server from configuration.
func New(cfg *config.Config, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewDefault()
	}

	bus := term.NewBus()
	registry := term.NewRegistry(pty.NewLocalBridge(), bus, cfg.Terminal, log.Named("registry"))
	history := term.NewHistory(registry, cfg.History.Capacity)

	collaborator := assist.NewClient(cfg.Assist, log.Named("assist"))
	cache := term.NewCache(registry, collaborator, cfg.Context, log.Named("context"))

	provider := terminal.NewProvider(registry, history, cache, collaborator, log.Named("terminal"))

	services := service.NewRegistry()
	if err := services.Register(provider); err != nil {
		log.Warn("failed to register terminal provider", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()
	metrics.WatchBus(bus)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		cfg:      cfg,
		log:      log,
		router:   router,
		bus:      bus,
		registry: registry,
		history:  history,
		cache:    cache,
		provider: provider,
		services: services,
		metrics:  metrics,
	}

	wsHandler := ws.NewHandler(registry, bus, provider, metrics, log.Named("ws"))

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/sessions", s.createSession)
	router.GET("/sessions", s.listSessions)
	router.POST("/sessions/:id/activate", s.activateSession)
	router.DELETE("/sessions/:id", s.closeSession)
	router.POST("/sessions/:id/resize", s.resizeSession)
	router.POST("/sessions/:id/write", s.writeSession)
	router.GET("/sessions/:id/blocks", s.sessionBlocks)

	router.POST("/command", s.sendCommand)
	router.POST("/undo", s.undo)
	router.POST("/redo", s.redo)
	router.GET("/context", s.getContext)
	router.POST("/ask", s.ask)

	router.GET("/services", s.listServices)
	router.POST("/services/execute", s.executeService)

	router.GET("/stream", wsHandler.HandleConnection)

	return s
}

// Run starts serving until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.log.Info("starting core service", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener and destroys the session registry,
// killing every live shell. The registry destroy is the barrier: nothing is
// accepted afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.registry.Destroy()
	return err
}
