package extension

import (
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// ContextFunc builds the sandbox-side context for one extension.
type ContextFunc func(d *Descriptor) *Context

// MessageTypes returns every command type some extension handles, sorted.
func (c *Composition) MessageTypes() []protocol.Type {
	types := make([]protocol.Type, 0, len(c.routes))
	for t := range c.routes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Routes returns the keys of the extensions handling t, in plugin-chain
// order.
func (c *Composition) Routes(t protocol.Type) []string {
	names := make([]string, 0, len(c.routes[t]))
	for _, d := range c.routes[t] {
		names = append(names, d.Key())
	}
	return names
}

// Dispatch delivers a command to every extension that declared its type.
// Each handler runs behind its own catch boundary, so a failing handler
// does not stop the rest. routed is false when no extension handles the
// type; consumed is true when any handler reported consuming it.
func (c *Composition) Dispatch(msg protocol.Message, ctxFor ContextFunc) (routed, consumed bool) {
	handlers := c.routes[msg.Type]
	if len(handlers) == 0 {
		return false, false
	}

	for _, d := range handlers {
		var ok bool
		_ = c.guard(d, "message", func() error {
			var err error
			ok, err = d.HandleMessage(ctxFor(d), msg)
			return err
		})
		consumed = consumed || ok
	}

	if !consumed {
		c.logger.Debug("Message not consumed",
			zap.String("type", string(msg.Type)),
			zap.Strings("extensions", c.Routes(msg.Type)))
	}
	return true, consumed
}

// EventTypes returns every inbound event type some extension declared,
// sorted.
func (c *Composition) EventTypes() []protocol.Type {
	seen := make(map[protocol.Type]bool)
	for _, d := range c.registered {
		for _, t := range d.EventTypes {
			seen[t] = true
		}
	}
	types := make([]protocol.Type, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Notify delivers an inbound event on the host: first to the extensions
// that declared its type, then to every observer. It returns how many
// handlers ran.
func (c *Composition) Notify(msg protocol.Message) int {
	return c.NotifyTyped(msg) + c.NotifyObservers(msg)
}

// NotifyTyped runs the handlers that declared msg's type, in registration
// order.
func (c *Composition) NotifyTyped(msg protocol.Message) int {
	n := 0
	for _, d := range c.registered {
		if d.HandleEvent != nil && contains(d.EventTypes, msg.Type) {
			c.event(d, msg)
			n++
		}
	}
	return n
}

// NotifyObservers runs the handlers that declared no event types, in
// registration order.
func (c *Composition) NotifyObservers(msg protocol.Message) int {
	n := 0
	for _, d := range c.registered {
		if d.HandleEvent != nil && len(d.EventTypes) == 0 {
			c.event(d, msg)
			n++
		}
	}
	return n
}

func (c *Composition) event(d *Descriptor, msg protocol.Message) {
	_ = c.guard(d, "event", func() error {
		d.HandleEvent(msg)
		return nil
	})
}
