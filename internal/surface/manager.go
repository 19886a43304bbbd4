package surface

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/channel"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/shared/id"
)

// Manager orchestrates surface lifecycle
type Manager struct {
	surfaces sync.Map
	count    atomic.Int64
	shutdown atomic.Bool

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a new surface manager
func NewManager(logger *zap.Logger, metrics *monitoring.Metrics) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger, metrics: metrics}
}

// Mount creates an editor backed by an in-process sandbox and waits until
// the sandbox document has loaded.
func (m *Manager) Mount(ctx context.Context, spec Spec) (*Surface, error) {
	if m.shutdown.Load() {
		return nil, ErrShutdown
	}
	s, err := mountSandbox(ctx, spec, m.logger, m.metrics)
	if err != nil {
		return nil, err
	}
	if err := m.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Attach creates an editor whose sandbox lives behind t.
func (m *Manager) Attach(spec Spec, t channel.Transport) (*Surface, error) {
	if m.shutdown.Load() {
		return nil, ErrShutdown
	}
	s, err := attachRemote(spec, t, m.logger, m.metrics)
	if err != nil {
		return nil, err
	}
	if err := m.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// register publishes s. A Shutdown that began before s became visible
// would miss it, so s is withdrawn and closed if one has started.
func (m *Manager) register(s *Surface) error {
	m.count.Add(1)
	m.metrics.IncEditors()
	m.surfaces.Store(s.ID(), s)

	if m.shutdown.Load() {
		if err := m.Unmount(s.ID()); err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.Warn("Failed to unmount surface", zap.Error(err))
		}
		return ErrShutdown
	}

	m.logger.Info("Surface mounted",
		zap.String("editor", s.ID().String()),
		zap.String("kind", string(s.kind)))
	return nil
}

// Get retrieves a surface by ID
func (m *Manager) Get(editorID id.EditorID) (*Surface, bool) {
	val, ok := m.surfaces.Load(editorID)
	if !ok {
		return nil, false
	}
	return val.(*Surface), true
}

// List returns all surfaces, oldest first
func (m *Manager) List() []*Surface {
	var out []*Surface
	m.surfaces.Range(func(_, value any) bool {
		out = append(out, value.(*Surface))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

// Unmount closes a surface and forgets it
func (m *Manager) Unmount(editorID id.EditorID) error {
	val, ok := m.surfaces.LoadAndDelete(editorID)
	if !ok {
		return ErrNotFound
	}
	s := val.(*Surface)

	m.count.Add(-1)
	m.metrics.DecEditors()
	m.logger.Info("Surface unmounted", zap.String("editor", editorID.String()))
	return s.Close()
}

// Count returns the number of mounted surfaces
func (m *Manager) Count() int {
	return int(m.count.Load())
}

// Stats summarizes mounted surfaces
type Stats struct {
	Total   int            `json:"total"`
	ByKind  map[Kind]int   `json:"by_kind"`
	ByPhase map[string]int `json:"by_phase"`
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	st := Stats{ByKind: make(map[Kind]int), ByPhase: make(map[string]int)}
	m.surfaces.Range(func(_, value any) bool {
		s := value.(*Surface)
		st.Total++
		st.ByKind[s.kind]++
		st.ByPhase[s.editor.Phase().String()]++
		return true
	})
	return st
}

// Shutdown unmounts every surface and refuses new ones
func (m *Manager) Shutdown() {
	m.shutdown.Store(true)
	m.surfaces.Range(func(key, _ any) bool {
		if err := m.Unmount(key.(id.EditorID)); err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.Warn("Failed to unmount surface", zap.Error(err))
		}
		return true
	})
}
