package surface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/bridge"
	"github.com/GriffinCanCode/richbridge/internal/channel"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/sandbox"
	"github.com/GriffinCanCode/richbridge/internal/shared/id"
)

var (
	ErrNotFound = errors.New("surface not found")
	ErrShutdown = errors.New("surface manager is shut down")
)

// Kind tells where a surface's sandbox runs.
type Kind string

const (
	// KindSandbox runs the bridge runtime in an in-process script sandbox.
	KindSandbox Kind = "sandbox"
	// KindRemote talks to a sandbox outside the process, e.g. a web view.
	KindRemote Kind = "remote"
)

// Spec describes an editor to mount.
type Spec struct {
	// Descriptors builds the extensions. It is called once per surface so
	// host and sandbox share one descriptor set.
	Descriptors func() []*extension.Descriptor
	Editor      editor.Config
	Sandbox     sandbox.Config
}

// Surface is one mounted editor: the host proxy and whatever runs the
// other side of its channel.
type Surface struct {
	kind    Kind
	editor  *editor.Editor
	sandbox *sandbox.Sandbox
	engine  *engine.Memory
	runtime *bridge.Runtime
	created time.Time
}

// ID returns the editor ID.
func (s *Surface) ID() id.EditorID { return s.editor.ID() }

// Kind returns where the sandbox runs.
func (s *Surface) Kind() Kind { return s.kind }

// Editor returns the host-side proxy.
func (s *Surface) Editor() *editor.Editor { return s.editor }

// Sandbox returns the in-process sandbox, or nil for remote surfaces.
func (s *Surface) Sandbox() *sandbox.Sandbox { return s.sandbox }

// Engine returns the in-process engine, or nil for remote surfaces.
func (s *Surface) Engine() *engine.Memory { return s.engine }

// Runtime returns the in-process bridge runtime, or nil for remote
// surfaces.
func (s *Surface) Runtime() *bridge.Runtime { return s.runtime }

// Created returns the mount time.
func (s *Surface) Created() time.Time { return s.created }

// Info summarizes a surface for listings.
type Info struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Phase   string    `json:"phase"`
	Pending int       `json:"pending"`
	Created time.Time `json:"created"`
}

// Info returns a summary of the surface.
func (s *Surface) Info() Info {
	return Info{
		ID:      s.ID().String(),
		Kind:    s.kind,
		Phase:   s.editor.Phase().String(),
		Pending: s.editor.Pending(),
		Created: s.created,
	}
}

// Close tears the editor down, which closes its transport.
func (s *Surface) Close() error {
	return s.editor.Close()
}

// mountSandbox composes the editor, starts a sandbox, attaches it and
// loads the document: bootstrap globals, the bridge runtime over a memory
// engine, then the CSS injection.
func mountSandbox(ctx context.Context, spec Spec, logger *zap.Logger, metrics *monitoring.Metrics) (*Surface, error) {
	descs := spec.Descriptors()

	ed, err := editor.New(descs, spec.Editor, editor.WithLogger(logger), editor.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New(spec.Sandbox, logger.With(zap.String("editor", ed.ID().String())))
	if err != nil {
		_ = ed.Close()
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	sb.OnPost(ed.Receive)

	if err := ed.Attach(sb); err != nil {
		_ = sb.Close()
		_ = ed.Close()
		return nil, err
	}

	before, after, err := ed.BootstrapScripts()
	if err != nil {
		_ = ed.Close()
		return nil, fmt.Errorf("render bootstrap: %w", err)
	}

	s := &Surface{
		kind:    KindSandbox,
		editor:  ed,
		sandbox: sb,
		engine:  engine.NewMemory(),
		created: time.Now(),
	}

	err = sb.Load(ctx, sandbox.Document{
		Before: before,
		Program: func(vm *goja.Runtime) error {
			rt, err := bridge.Mount(vm, s.engine, descs,
				bridge.WithLogger(logger.With(zap.String("editor", ed.ID().String()))),
				bridge.WithFaultHook(metrics.RecordFault))
			s.runtime = rt
			return err
		},
		After: after,
	})
	if err != nil {
		_ = ed.Close()
		return nil, fmt.Errorf("load sandbox document: %w", err)
	}
	return s, nil
}

// attachRemote composes an editor and attaches it to t. The caller feeds
// inbound frames to Editor().Receive.
func attachRemote(spec Spec, t channel.Transport, logger *zap.Logger, metrics *monitoring.Metrics) (*Surface, error) {
	ed, err := editor.New(spec.Descriptors(), spec.Editor, editor.WithLogger(logger), editor.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	if err := ed.Attach(t); err != nil {
		_ = ed.Close()
		return nil, err
	}
	return &Surface{kind: KindRemote, editor: ed, created: time.Now()}, nil
}
