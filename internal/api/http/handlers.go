package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/bridges"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
	"github.com/GriffinCanCode/richbridge/internal/shared/id"
	"github.com/GriffinCanCode/richbridge/internal/surface"
)

const version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	manager   *surface.Manager
	specs     *Specs
	bundleURL string
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(manager *surface.Manager, specs *Specs, bundleURL string, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager:   manager,
		specs:     specs,
		bundleURL: bundleURL,
		metrics:   metrics,
		logger:    logger,
	}
}

// CallRequest invokes an instance method.
type CallRequest struct {
	Method  string          `json:"method" binding:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FocusRequest focuses an editor.
type FocusRequest struct {
	Position string `json:"position"`
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "richbridge editor host",
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"editors": h.manager.Stats(),
		"metrics": h.metrics.GetSnapshot(),
	})
}

// Extensions lists the bridges this host can compose.
func (h *Handlers) Extensions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"available": bridges.Names(),
		"enabled":   h.specs.Enabled(),
	})
}

// ListEditors lists all mounted editors
func (h *Handlers) ListEditors(c *gin.Context) {
	list := h.manager.List()
	infos := make([]surface.Info, len(list))
	for i, s := range list {
		infos[i] = s.Info()
	}
	c.JSON(http.StatusOK, gin.H{
		"editors": infos,
		"stats":   h.manager.Stats(),
	})
}

// MountEditor mounts an editor backed by an in-process sandbox
func (h *Handlers) MountEditor(c *gin.Context) {
	var req MountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	spec, err := h.specs.Build(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.manager.Mount(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	tracing.Tag(c, "editor", s.ID().String())
	c.JSON(http.StatusCreated, gin.H{
		"editor":  s.Info(),
		"methods": s.Editor().Methods(),
		"state":   s.Editor().State(),
	})
}

// GetState returns an editor's last known state
func (h *Handlers) GetState(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"editor": s.Info(),
		"state":  s.Editor().State(),
	})
}

// GetContent returns the document of a sandbox-backed editor
func (h *Handlers) GetContent(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	if s.Engine() == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "document lives outside this process"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"html": s.Engine().HTML(),
		"text": s.Engine().Text(),
	})
}

// CallMethod invokes an instance method on an editor
func (h *Handlers) CallMethod(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload any
	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		payload = req.Payload
	}
	if err := s.Editor().Call(req.Method, payload); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"method":  req.Method,
		"pending": s.Editor().Pending(),
	})
}

// FocusEditor focuses an editor
func (h *Handlers) FocusEditor(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req FocusRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Position == "" {
		req.Position = s.Editor().Config().FocusPosition
	}
	if err := s.Editor().Focus(req.Position); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"position": req.Position})
}

// UnmountEditor closes an editor
func (h *Handlers) UnmountEditor(c *gin.Context) {
	editorID, err := id.ParseEditorID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tracing.Tag(c, "editor", editorID.String())
	if err := h.manager.Unmount(editorID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) lookup(c *gin.Context) (*surface.Surface, bool) {
	editorID, err := id.ParseEditorID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	tracing.Tag(c, "editor", editorID.String())
	s, ok := h.manager.Get(editorID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": surface.ErrNotFound.Error()})
		return nil, false
	}
	return s, true
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, surface.ErrNotFound), errors.Is(err, extension.ErrUnknownMethod):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrClosed), errors.Is(err, surface.ErrShutdown):
		return http.StatusGone
	case errors.Is(err, extension.ErrConfig),
		errors.Is(err, editor.ErrBadPosition),
		errors.Is(err, bridges.ErrUnknownBridge),
		errors.Is(err, protocol.ErrPayloadType),
		errors.Is(err, protocol.ErrMalformed):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
