package channel

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

var (
	ErrClosed      = errors.New("channel closed")
	ErrNoTransport = errors.New("no transport attached")
)

// Transport executes injected instructions in the sandbox's script context.
// Inject must not block on the sandbox processing the script.
type Transport interface {
	Inject(script string) error
	Close() error
}

// Handler receives a decoded inbound message.
type Handler func(msg protocol.Message)

// Channel carries messages in both directions for one editor.
type Channel struct {
	mu        sync.Mutex
	transport Transport
	closed    bool

	routes    map[protocol.Type][]Handler
	observers []Handler

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates a channel without a transport.
func New(logger *zap.Logger, metrics *monitoring.Metrics) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		routes:  make(map[protocol.Type][]Handler),
		logger:  logger,
		metrics: metrics,
	}
}

// Attach binds the transport. A channel holds at most one transport.
func (c *Channel) Attach(t Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.transport != nil {
		return errors.New("transport already attached")
	}
	c.transport = t
	return nil
}

// Attached reports whether a transport is bound.
func (c *Channel) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// Route registers h for inbound messages of type t. Routes must be
// registered before the transport starts delivering.
func (c *Channel) Route(t protocol.Type, h Handler) {
	c.routes[t] = append(c.routes[t], h)
}

// Observe registers h for every inbound message, after routes.
func (c *Channel) Observe(h Handler) {
	c.observers = append(c.observers, h)
}

// Send renders msg and injects it. It returns once the transport has
// accepted the script.
func (c *Channel) Send(msg protocol.Message) error {
	script, err := protocol.Script(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	t, closed := c.transport, c.closed
	c.mu.Unlock()

	switch {
	case closed:
		c.metrics.RecordDropped(monitoring.DropClosed)
		return ErrClosed
	case t == nil:
		return ErrNoTransport
	}

	if err := t.Inject(script); err != nil {
		return fmt.Errorf("inject %s: %w", msg.Type, err)
	}
	c.metrics.RecordSent(string(msg.Type))
	return nil
}

// Receive decodes data and dispatches it. Malformed input is logged and
// dropped; nothing escapes to the caller.
func (c *Channel) Receive(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.logger.Warn("Dropping malformed message",
			zap.Error(err),
			zap.ByteString("data", truncate(data, 256)))
		c.metrics.RecordDropped(monitoring.DropMalformed)
		return
	}
	c.Deliver(msg)
}

// Deliver dispatches an already decoded message.
func (c *Channel) Deliver(msg protocol.Message) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.metrics.RecordDropped(monitoring.DropClosed)
		return
	}

	c.metrics.RecordReceived(string(msg.Type))

	routes := c.routes[msg.Type]
	if len(routes) == 0 {
		c.logger.Debug("Ignoring unrouted message", zap.String("type", string(msg.Type)))
		c.metrics.RecordDropped(monitoring.DropUnknown)
	}
	for _, h := range routes {
		c.invoke(h, msg)
	}
	for _, h := range c.observers {
		c.invoke(h, msg)
	}
}

func (c *Channel) invoke(h Handler, msg protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Message handler panicked",
				zap.String("type", string(msg.Type)),
				zap.Any("panic", r))
		}
	}()
	h(msg)
}

// Close tears down the transport. Later sends fail with ErrClosed and later
// inbound messages are dropped.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	t := c.transport
	c.transport = nil
	c.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Close()
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
