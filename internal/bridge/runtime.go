package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

var (
	ErrStarted    = errors.New("bridge already started")
	ErrNotStarted = errors.New("bridge not started")
)

// PostFunc delivers a serialized message to the host.
type PostFunc func(data []byte) error

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFaultHook is told about every isolated extension fault.
func WithFaultHook(fn func(extension string)) Option {
	return func(r *Runtime) { r.onFault = fn }
}

// Runtime dispatches host commands to extensions and reports engine state.
type Runtime struct {
	eng    engine.Engine
	descs  []*extension.Descriptor
	post   PostFunc
	logger *zap.Logger

	onFault func(extension string)

	mu          sync.Mutex
	comp        *extension.Composition
	handles     map[*extension.Descriptor]engine.Handle
	configs     map[string]json.RawMessage
	unsubscribe func()
}

// New creates a runtime over every extension the sandbox bundle ships.
// Start decides which of them are active.
func New(eng engine.Engine, descs []*extension.Descriptor, post PostFunc, opts ...Option) *Runtime {
	r := &Runtime{
		eng:     eng,
		descs:   descs,
		post:    post,
		logger:  zap.NewNop(),
		handles: make(map[*extension.Descriptor]engine.Handle),
		configs: make(map[string]json.RawMessage),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start activates the whitelisted extensions, registers their plugins,
// applies the initial content and emits ready then the first state.
func (r *Runtime) Start(boot protocol.Bootstrap) error {
	r.mu.Lock()
	if r.comp != nil {
		r.mu.Unlock()
		return ErrStarted
	}

	var active []*extension.Descriptor
	for _, d := range r.descs {
		if boot.Allows(d.Key()) {
			active = append(active, d)
		}
	}

	comp, err := extension.Compose(active, nil,
		extension.WithLogger(r.logger),
		extension.WithFaultHook(r.onFault))
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("compose extensions: %w", err)
	}

	for _, d := range comp.Extensions() {
		cfg := d.Config
		if override, ok := boot.Config[d.Key()]; ok {
			cfg = override
		}
		r.configs[d.Key()] = cfg

		if d.Plugin == nil {
			continue
		}
		h, err := r.eng.Register(*d.Plugin, cfg)
		if err != nil {
			r.mu.Unlock()
			return fmt.Errorf("register %s: %w", d.Key(), err)
		}
		r.handles[d] = h
	}
	r.comp = comp
	r.mu.Unlock()

	if boot.InitialContent != "" {
		if err := r.eng.SetContent(boot.InitialContent); err != nil {
			return fmt.Errorf("initial content: %w", err)
		}
	}

	r.logger.Info("Bridge started",
		zap.Strings("extensions", comp.Names()),
		zap.Int("plugins", len(comp.Plugins())))

	if err := r.Emit(protocol.Message{Type: protocol.TypeReady}); err != nil {
		return err
	}
	r.EmitState()

	unsubscribe := r.eng.OnUpdate(r.EmitState)
	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
	return nil
}

// Stop detaches from engine updates.
func (r *Runtime) Stop() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Composition returns the active extensions, or nil before Start.
func (r *Runtime) Composition() *extension.Composition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comp
}

// PluginHandle returns the engine handle held for the active extension
// named name.
func (r *Runtime) PluginHandle(name string) (engine.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for d, h := range r.handles {
		if d.Key() == name {
			return h, true
		}
	}
	return engine.Handle{}, false
}

// Receive decodes and handles a command from the host. Malformed input is
// logged and dropped.
func (r *Runtime) Receive(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		r.logger.Warn("Dropping malformed command", zap.Error(err))
		return
	}
	r.Dispatch(msg)
}

// ReceiveValue is Receive for values exported from the script realm.
func (r *Runtime) ReceiveValue(v any) {
	msg, err := protocol.DecodeValue(v)
	if err != nil {
		r.logger.Warn("Dropping malformed command", zap.Error(err))
		return
	}
	r.Dispatch(msg)
}

// Dispatch handles a decoded command.
func (r *Runtime) Dispatch(msg protocol.Message) {
	comp := r.Composition()
	if comp == nil {
		r.logger.Warn("Command before start", zap.String("type", string(msg.Type)))
		return
	}

	if msg.Type == protocol.TypeFocus {
		if err := r.focus(msg); err != nil {
			r.logger.Warn("Focus failed", zap.Error(err))
		}
		return
	}

	if routed, _ := comp.Dispatch(msg, r.context); !routed {
		r.logger.Debug("Ignoring unhandled command", zap.String("type", string(msg.Type)))
	}
}

func (r *Runtime) focus(msg protocol.Message) error {
	pos := "end"
	if msg.HasPayload() {
		var v any
		if err := msg.Decode(&v); err != nil {
			return err
		}
		switch p := v.(type) {
		case string:
			pos = p
		case float64:
			pos = strconv.Itoa(int(p))
		case bool:
			if !p {
				return r.eng.Blur()
			}
		default:
			return fmt.Errorf("%w: focus position %v", protocol.ErrPayloadType, v)
		}
	}
	return r.eng.Focus(pos)
}

// EmitState posts the merged state of all active extensions.
func (r *Runtime) EmitState() {
	comp := r.Composition()
	if comp == nil {
		return
	}

	msg, err := protocol.New(protocol.TypeStateUpdate, comp.MergeState(r.context))
	if err != nil {
		r.logger.Error("Failed to encode state", zap.Error(err))
		return
	}
	if err := r.Emit(msg); err != nil {
		r.logger.Warn("Failed to post state", zap.Error(err))
	}
}

// Emit posts msg to the host.
func (r *Runtime) Emit(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := r.post(data); err != nil {
		return fmt.Errorf("post %s: %w", msg.Type, err)
	}
	return nil
}

func (r *Runtime) context(d *extension.Descriptor) *extension.Context {
	r.mu.Lock()
	h := r.handles[d]
	cfg := r.configs[d.Key()]
	r.mu.Unlock()

	return &extension.Context{
		Engine: r.eng,
		Handle: h,
		Config: cfg,
		Emit: func(msg protocol.Message) {
			if err := r.Emit(msg); err != nil {
				r.logger.Warn("Failed to post event",
					zap.String("extension", d.Key()),
					zap.Error(err))
			}
		},
	}
}
