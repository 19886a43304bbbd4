package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/channel"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
	"github.com/GriffinCanCode/richbridge/internal/shared/id"
)

var (
	ErrClosed      = errors.New("editor closed")
	ErrAttached    = errors.New("editor already attached")
	ErrNotReady    = errors.New("editor not ready")
	ErrBadPosition = errors.New("invalid focus position")
)

// Phase is the readiness state of an Editor.
type Phase int

const (
	Constructing Phase = iota
	AwaitingReady
	Ready
	Closed
)

func (p Phase) String() string {
	switch p {
	case Constructing:
		return "constructing"
	case AwaitingReady:
		return "awaiting-ready"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	}
	return "phase(" + strconv.Itoa(int(p)) + ")"
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the editor logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records bridge metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Editor) { e.metrics = m }
}

// WithID sets the editor ID instead of generating one.
func WithID(editorID id.EditorID) Option {
	return func(e *Editor) { e.id = editorID }
}

// Editor is the host-side proxy for one sandboxed editor surface.
type Editor struct {
	id      id.EditorID
	cfg     Config
	comp    *extension.Composition
	ch      *channel.Channel
	logger  *zap.Logger
	metrics *monitoring.Metrics
	created time.Time

	// sendMu keeps outbound messages FIFO across the ready flush.
	sendMu sync.Mutex

	mu        sync.Mutex
	phase     Phase
	pending   []protocol.Message
	state     extension.State
	listeners map[int]func(extension.State)
	nextSub   int

	ready  chan struct{}
	closed chan struct{}
}

// New composes descs into an editor. Composition errors are configuration
// errors and are returned before any sandbox exists.
func New(descs []*extension.Descriptor, cfg Config, opts ...Option) (*Editor, error) {
	e := &Editor{
		cfg:       cfg,
		logger:    zap.NewNop(),
		created:   time.Now(),
		phase:     Constructing,
		listeners: make(map[int]func(extension.State)),
		ready:     make(chan struct{}),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = id.NewEditorID()
	}
	if e.cfg.FocusPosition == "" {
		e.cfg.FocusPosition = DefaultConfig().FocusPosition
	}
	e.logger = e.logger.With(zap.String("editor", e.id.String()))

	comp, err := extension.Compose(descs, e.enqueue,
		extension.WithLogger(e.logger),
		extension.WithFaultHook(e.metrics.RecordFault))
	if err != nil {
		return nil, fmt.Errorf("compose extensions: %w", err)
	}
	e.comp = comp
	e.state = comp.InitialState()

	e.ch = channel.New(e.logger, e.metrics)
	e.ch.Route(protocol.TypeReady, e.onReady)
	e.ch.Route(protocol.TypeStateUpdate, e.onStateUpdate)
	for _, t := range comp.EventTypes() {
		e.ch.Route(t, func(msg protocol.Message) { comp.NotifyTyped(msg) })
	}
	e.ch.Observe(func(msg protocol.Message) { comp.NotifyObservers(msg) })

	return e, nil
}

// ID returns the editor ID.
func (e *Editor) ID() id.EditorID { return e.id }

// Config returns the editor configuration.
func (e *Editor) Config() Config { return e.cfg }

// Composition returns the composed extensions.
func (e *Editor) Composition() *extension.Composition { return e.comp }

// Phase returns the current readiness phase.
func (e *Editor) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Attach binds the transport to a live sandbox and starts awaiting the
// ready signal.
func (e *Editor) Attach(t channel.Transport) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.phase {
	case Closed:
		return ErrClosed
	case Constructing:
	default:
		return ErrAttached
	}
	if err := e.ch.Attach(t); err != nil {
		return err
	}
	e.phase = AwaitingReady
	e.logger.Debug("Transport attached")
	return nil
}

// Receive hands a raw inbound message to the channel. Transports call it
// from a single goroutine.
func (e *Editor) Receive(data []byte) {
	e.ch.Receive(data)
}

// Call invokes a composed instance method.
func (e *Editor) Call(method string, payload any) error {
	if e.Phase() == Closed {
		return ErrClosed
	}
	return e.comp.Call(method, payload)
}

// Methods lists the composed instance methods.
func (e *Editor) Methods() []string {
	return e.comp.Methods()
}

// Focus asks the sandbox to focus at position: "start", "end", "all" or a
// document position. An empty position uses the configured FocusPosition.
func (e *Editor) Focus(position string) error {
	if position == "" {
		position = e.cfg.FocusPosition
	}
	msg, err := focusMessage(position)
	if err != nil {
		return err
	}
	return e.enqueueErr(msg)
}

func focusMessage(position string) (protocol.Message, error) {
	switch position {
	case "start", "end", "all":
		return protocol.New(protocol.TypeFocus, position)
	}
	n, err := strconv.Atoi(position)
	if err != nil || n < 0 {
		return protocol.Message{}, fmt.Errorf("%w: %q", ErrBadPosition, position)
	}
	return protocol.New(protocol.TypeFocus, n)
}

// State returns a copy of the current state snapshot.
func (e *Editor) State() extension.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// OnState registers fn to receive a copy of the snapshot after each merged
// state update. The returned func unregisters it.
func (e *Editor) OnState(fn func(extension.State)) func() {
	e.mu.Lock()
	e.nextSub++
	sub := e.nextSub
	e.listeners[sub] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, sub)
		e.mu.Unlock()
	}
}

// IsReady reports whether the ready signal has been received.
func (e *Editor) IsReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the editor is ready, closed, or ctx is done.
func (e *Editor) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-e.closed:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// Done is closed when the editor is closed.
func (e *Editor) Done() <-chan struct{} { return e.closed }

// Pending returns how many commands are buffered.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Close tears down the transport and drops buffered commands. It is safe
// to call more than once.
func (e *Editor) Close() error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.mu.Lock()
	if e.phase == Closed {
		e.mu.Unlock()
		return nil
	}
	e.phase = Closed
	dropped := len(e.pending)
	e.pending = nil
	e.listeners = make(map[int]func(extension.State))
	close(e.closed)
	e.mu.Unlock()

	e.metrics.AddPending(-dropped)
	if dropped > 0 {
		e.logger.Debug("Dropped pending commands on close", zap.Int("count", dropped))
	}
	return e.ch.Close()
}

// enqueue is the SendFunc handed to extensions.
func (e *Editor) enqueue(msg protocol.Message) {
	if err := e.enqueueErr(msg); err != nil {
		e.logger.Warn("Command not delivered",
			zap.String("type", string(msg.Type)),
			zap.Error(err))
	}
}

func (e *Editor) enqueueErr(msg protocol.Message) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.mu.Lock()
	switch e.phase {
	case Closed:
		e.mu.Unlock()
		e.metrics.RecordDropped(monitoring.DropClosed)
		return ErrClosed
	case Ready:
		e.mu.Unlock()
		return e.ch.Send(msg)
	}
	e.pending = append(e.pending, msg)
	e.mu.Unlock()

	e.metrics.AddPending(1)
	return nil
}

func (e *Editor) onReady(protocol.Message) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.mu.Lock()
	if e.phase != AwaitingReady {
		phase := e.phase
		e.mu.Unlock()
		e.logger.Debug("Ignoring ready signal", zap.Stringer("phase", phase))
		return
	}
	e.phase = Ready
	pending := e.pending
	e.pending = nil
	close(e.ready)
	e.mu.Unlock()

	e.metrics.AddPending(-len(pending))
	e.metrics.ObserveReady(time.Since(e.created))

	for _, msg := range pending {
		if err := e.ch.Send(msg); err != nil {
			e.logger.Error("Failed to flush command",
				zap.String("type", string(msg.Type)),
				zap.Error(err))
		}
	}

	if e.cfg.Autofocus {
		msg, err := focusMessage(e.cfg.FocusPosition)
		if err == nil {
			err = e.ch.Send(msg)
		}
		if err != nil {
			e.logger.Warn("Autofocus failed", zap.Error(err))
		}
	}

	e.logger.Info("Editor ready",
		zap.Int("flushed", len(pending)),
		zap.Duration("elapsed", time.Since(e.created)))
}

func (e *Editor) onStateUpdate(msg protocol.Message) {
	var partial map[string]any
	if err := msg.Decode(&partial); err != nil {
		e.logger.Warn("Dropping state update", zap.Error(err))
		e.metrics.RecordDropped(monitoring.DropMalformed)
		return
	}

	e.mu.Lock()
	if e.phase != Ready {
		phase := e.phase
		e.mu.Unlock()
		e.logger.Debug("Ignoring state update before ready", zap.Stringer("phase", phase))
		e.metrics.RecordDropped(monitoring.DropNotReady)
		return
	}
	for k, v := range partial {
		e.state[k] = v
	}
	snapshot := e.state.Clone()
	listeners := make([]func(extension.State), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}
