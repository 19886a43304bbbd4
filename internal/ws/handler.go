package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/surface"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// SpecFunc returns the spec of a new editor.
type SpecFunc func() surface.Spec

// Handler manages WebSocket connections from editor web views
type Handler struct {
	manager *surface.Manager
	spec    SpecFunc
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *surface.Manager, spec SpecFunc, logger *zap.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager: manager,
		spec:    spec,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleConnection upgrades the request and attaches one editor to the
// connection for its lifetime.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	wc := NewConn(conn, h.logger)
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	s, err := h.manager.Attach(h.spec(), wc)
	if err != nil {
		h.logger.Error("Failed to attach editor", zap.String("conn", wc.ID()), zap.Error(err))
		_ = wc.Close()
		return
	}
	h.logger.Info("Editor connected",
		zap.String("conn", wc.ID()),
		zap.String("editor", s.ID().String()))

	if err := wc.ReadLoop(s.Editor().Receive); err != nil {
		h.logger.Debug("WebSocket read ended", zap.String("conn", wc.ID()), zap.Error(err))
	}

	if err := h.manager.Unmount(s.ID()); err != nil && !errors.Is(err, surface.ErrNotFound) {
		h.logger.Warn("Failed to unmount editor", zap.Error(err))
	}
	h.logger.Info("Editor disconnected", zap.String("editor", s.ID().String()))
}
