package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

type task struct {
	label string
	fn    func() error
	done  chan error
}

// Sandbox is an isolated script realm driven by its own event loop. All
// script execution, timers and event listeners run on the loop goroutine,
// one task at a time, in submission order.
type Sandbox struct {
	vm     *goja.Runtime
	config Config
	dom    *DOM
	logger *zap.Logger

	mu      sync.Mutex
	queue   []task
	closed  bool
	timers  map[int64]*time.Timer
	nextID  int64
	onPost  func(data []byte)
	wake    chan struct{}
	stopped chan struct{}

	// Loop-owned state
	listeners map[string][]goja.Value
	elements  map[*goja.Object]*Element
	wrappers  map[*Element]*goja.Object

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a sandbox and starts its loop
func New(config Config, logger *zap.Logger) (*Sandbox, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sandbox{
		vm:        goja.New(),
		config:    config,
		logger:    logger.Named("sandbox"),
		timers:    make(map[int64]*time.Timer),
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
		listeners: make(map[string][]goja.Value),
		elements:  make(map[*goja.Object]*Element),
		wrappers:  make(map[*Element]*goja.Object),
	}
	if config.MaxCallStackSize > 0 {
		s.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if config.EnableDOM {
		s.dom = NewDOM()
	}

	if err := s.setupGlobals(); err != nil {
		return nil, err
	}

	go s.loop()
	return s, nil
}

// OnPost sets the receiver of window.ReactNativeWebView.postMessage. It is
// called on the loop goroutine.
func (s *Sandbox) OnPost(fn func(data []byte)) {
	s.mu.Lock()
	s.onPost = fn
	s.mu.Unlock()
}

// DOM returns the document, or nil when the DOM is disabled
func (s *Sandbox) DOM() *DOM { return s.dom }

// Inject queues script for execution and returns immediately
func (s *Sandbox) Inject(script string) error {
	return s.enqueue(task{label: "inject", fn: func() error {
		_, err := s.vm.RunString(script)
		return err
	}})
}

// Eval runs script and returns its exported value. It must not be called
// from the loop goroutine.
func (s *Sandbox) Eval(ctx context.Context, script string) (any, error) {
	var out any
	err := s.Do(ctx, func(vm *goja.Runtime) error {
		val, err := vm.RunString(script)
		if err != nil {
			return err
		}
		out = exportValue(val)
		return nil
	})
	return out, err
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop goroutine.
func (s *Sandbox) Do(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	done := make(chan error, 1)
	if err := s.enqueue(task{label: "do", fn: func() error { return fn(s.vm) }, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs fn on the loop without waiting
func (s *Sandbox) Go(fn func(vm *goja.Runtime) error) error {
	return s.enqueue(task{label: "go", fn: func() error { return fn(s.vm) }})
}

// Load runs the document: the bootstrap script, the program, the load
// event and the after-load script, as one task.
func (s *Sandbox) Load(ctx context.Context, doc Document) error {
	return s.Do(ctx, func(vm *goja.Runtime) error {
		if doc.Before != "" {
			if _, err := vm.RunString(doc.Before); err != nil {
				return fmt.Errorf("bootstrap script: %w", err)
			}
		}
		if doc.Program != nil {
			if err := doc.Program(vm); err != nil {
				return fmt.Errorf("document program: %w", err)
			}
		}
		s.fire("load", vm.NewObject())
		if doc.After != "" {
			if _, err := vm.RunString(doc.After); err != nil {
				return fmt.Errorf("after-load script: %w", err)
			}
		}
		return nil
	})
}

// Console returns captured console output
func (s *Sandbox) Console() []LogEntry {
	s.consoleMu.Lock()
	defer s.consoleMu.Unlock()
	return append([]LogEntry{}, s.console...)
}

// Close stops the loop, cancels timers and drops queued tasks. It does not
// wait for a running task, so it is safe to call from loop callbacks.
func (s *Sandbox) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dropped := s.queue
	s.queue = nil
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for _, t := range dropped {
		if t.done != nil {
			t.done <- ErrClosed
		}
	}
	s.vm.Interrupt(ErrClosed)
	s.signal()
	return nil
}

// Done is closed once the loop has exited
func (s *Sandbox) Done() <-chan struct{} { return s.stopped }

func (s *Sandbox) enqueue(t task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.queue = append(s.queue, t)
	s.mu.Unlock()

	s.signal()
	return nil
}

func (s *Sandbox) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sandbox) loop() {
	defer close(s.stopped)

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			<-s.wake
			continue
		}
		t := s.queue[0]
		s.queue[0] = task{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		err := s.run(t)
		if t.done != nil {
			t.done <- err
		} else if err != nil {
			s.logger.Warn("Sandbox task failed", zap.String("task", t.label), zap.Error(err))
		}
	}
}

// run executes one task with the timeout and a panic boundary
func (s *Sandbox) run(t task) (err error) {
	if s.config.Timeout > 0 {
		timer := time.AfterFunc(s.config.Timeout, func() {
			s.vm.Interrupt(ErrTimeout)
		})
		defer func() {
			timer.Stop()
			s.vm.ClearInterrupt()
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	err = t.fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("%s: %w", t.label, v)
		}
	}
	return err
}

func (s *Sandbox) post(data []byte) {
	s.mu.Lock()
	fn := s.onPost
	s.mu.Unlock()

	if fn == nil {
		s.logger.Debug("Dropping post without receiver")
		return
	}
	fn(data)
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
