package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/richbridge/internal/api/http"
	"github.com/GriffinCanCode/richbridge/internal/api/middleware"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/richbridge/internal/logging"
	"github.com/GriffinCanCode/richbridge/internal/surface"
	"github.com/GriffinCanCode/richbridge/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	manager  *surface.Manager
	specs    *api.Specs
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
	tracer   *tracing.Tracer
}

// Option customizes a server.
type Option func(*Server)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}
	logger := s.logger

	logger.Info("Initializing editor host",
		zap.String("addr", cfg.Server.Host+":"+cfg.Server.Port),
		zap.String("bundle", cfg.Editor.BundleURL),
	)

	specs, err := api.NewSpecs(cfg)
	if err != nil {
		return nil, err
	}
	s.specs = specs

	// Metrics first, every other component reports into them
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = monitoring.NewMetrics(s.registry)
	s.manager = surface.NewManager(logger.Logger, s.metrics)
	s.tracer = tracing.New("editorhost", logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(s.manager, specs, cfg.Editor.BundleURL, s.metrics, logger.Logger)
	wsHandler := ws.NewHandler(s.manager, specs.Default, logger.Logger, s.metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/extensions", handlers.Extensions)

	// Web view document and its socket
	router.GET("/editor", handlers.EditorPage)
	router.GET("/ws", wsHandler.HandleConnection)

	// Editor management
	router.GET("/editors", handlers.ListEditors)
	router.POST("/editors", handlers.MountEditor)
	router.GET("/editors/:id/state", handlers.GetState)
	router.GET("/editors/:id/content", handlers.GetContent)
	router.POST("/editors/:id/call", handlers.CallMethod)
	router.POST("/editors/:id/focus", handlers.FocusEditor)
	router.DELETE("/editors/:id", handlers.UnmountEditor)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Manager returns the editor manager.
func (s *Server) Manager() *surface.Manager { return s.manager }

// Run starts the HTTP server and blocks until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Close(shutdownCtx)
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	s.manager.Shutdown()
	s.logger.Info("Closed all editors")
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
