package bridges

import (
	"slices"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// method is one instance method and the command it sends.
type method struct {
	name string
	typ  protocol.Type
	// noPayload drops whatever the caller passes.
	noPayload bool
}

// instance declares methods and builds the matching instance contributor.
func instance(methods ...method) ([]string, func(extension.SendFunc) map[string]extension.Command) {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.name
	}

	return names, func(send extension.SendFunc) map[string]extension.Command {
		out := make(map[string]extension.Command, len(methods))
		for _, m := range methods {
			out[m.name] = sender(send, m)
		}
		return out
	}
}

func sender(send extension.SendFunc, m method) extension.Command {
	return func(payload any) error {
		if m.noPayload {
			payload = nil
		}
		msg, err := protocol.New(m.typ, payload)
		if err != nil {
			return err
		}
		send(msg)
		return nil
	}
}

// handlers routes each message type to its own engine call.
type handlers map[protocol.Type]func(ctx *extension.Context, msg protocol.Message) error

func (h handlers) types() []protocol.Type {
	out := make([]protocol.Type, 0, len(h))
	for t := range h {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func (h handlers) handle(ctx *extension.Context, msg protocol.Message) (bool, error) {
	fn, ok := h[msg.Type]
	if !ok {
		return false, nil
	}
	return true, fn(ctx, msg)
}

func exec(name string, args any) func(*extension.Context, protocol.Message) error {
	return func(ctx *extension.Context, _ protocol.Message) error {
		return ctx.Engine.Exec(engine.Command{Name: name, Args: args})
	}
}
