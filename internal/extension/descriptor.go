package extension

import (
	"encoding/json"
	"fmt"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// DefaultPriority is used when a descriptor leaves Priority at zero.
const DefaultPriority = 100

// State is an aggregated or partial state snapshot keyed by state key.
type State map[string]any

// Clone returns a shallow copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SendFunc posts a message toward the sandbox. It never blocks on the
// sandbox and never returns a result.
type SendFunc func(msg protocol.Message)

// Command is one composed instance method.
type Command func(payload any) error

// Context is what sandbox-side callbacks see: the engine, the handle of
// the extension's own plugin and its configuration.
type Context struct {
	Engine engine.Engine
	Handle engine.Handle
	Config json.RawMessage
	// Emit posts a custom event back to the host.
	Emit func(msg protocol.Message)
}

// PluginState returns the state of the extension's own plugin.
func (c *Context) PluginState() (any, error) {
	return c.Engine.PluginState(c.Handle)
}

// DecodeConfig unmarshals the extension configuration into v. An empty
// configuration leaves v untouched.
func (c *Context) DecodeConfig(v any) error {
	if len(c.Config) == 0 {
		return nil
	}
	if err := protocol.Unmarshal(c.Config, v); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Descriptor declares one capability.
type Descriptor struct {
	Name string
	// ForcedName makes later descriptors with the same value replace this
	// one instead of being added next to it.
	ForcedName string
	// Priority orders the plugin chain, higher first. Zero means
	// DefaultPriority.
	Priority int

	// Plugin is handed unmodified to the engine. Nil for host-only
	// capabilities.
	Plugin *engine.Plugin
	// Config is the default per-extension configuration blob.
	Config json.RawMessage
	// CSS is appended to the sandbox document head after load.
	CSS string

	// StateKeys lists every key ContributeState may return.
	StateKeys    []string
	InitialState State
	// ContributeState runs on every state update, inside the sandbox.
	ContributeState func(ctx *Context) State

	// Methods lists every instance method ContributeInstance returns.
	Methods []string
	// ContributeInstance runs once, on the host, at composition.
	ContributeInstance func(send SendFunc) map[string]Command

	// MessageTypes are the commands HandleMessage serves inside the sandbox.
	MessageTypes []protocol.Type
	// HandleMessage reports whether it consumed msg.
	HandleMessage func(ctx *Context, msg protocol.Message) (bool, error)

	// EventTypes are the inbound events HandleEvent serves on the host.
	// A HandleEvent without EventTypes observes every inbound message.
	EventTypes  []protocol.Type
	HandleEvent func(msg protocol.Message)
}

// Key is the identity used for replacement: the forced name when set,
// otherwise the name.
func (d *Descriptor) Key() string {
	if d.ForcedName != "" {
		return d.ForcedName
	}
	return d.Name
}

// EffectivePriority resolves the zero value to DefaultPriority.
func (d *Descriptor) EffectivePriority() int {
	if d.Priority == 0 {
		return DefaultPriority
	}
	return d.Priority
}

func (d *Descriptor) validate() error {
	switch {
	case d.Name == "":
		return malformed(d, "name is empty")
	case len(d.StateKeys) > 0 && d.ContributeState == nil && d.InitialState == nil:
		return malformed(d, "state keys declared without a contributor")
	case len(d.Methods) > 0 && d.ContributeInstance == nil:
		return malformed(d, "methods declared without an instance contributor")
	case d.ContributeInstance != nil && len(d.Methods) == 0:
		return malformed(d, "instance contributor declares no methods")
	case len(d.MessageTypes) > 0 && d.HandleMessage == nil:
		return malformed(d, "message types declared without a handler")
	case d.HandleMessage != nil && len(d.MessageTypes) == 0:
		return malformed(d, "message handler declares no message types")
	case len(d.EventTypes) > 0 && d.HandleEvent == nil:
		return malformed(d, "event types declared without a handler")
	case d.Plugin != nil && d.Plugin.Name == "":
		return malformed(d, "engine plugin has no name")
	}

	for _, key := range d.StateKeys {
		if key == "" {
			return malformed(d, "empty state key")
		}
	}
	for key := range d.InitialState {
		if !contains(d.StateKeys, key) {
			return malformed(d, fmt.Sprintf("initial state key %q is not declared", key))
		}
	}
	for _, m := range d.Methods {
		if m == "" {
			return malformed(d, "empty method name")
		}
		if reservedMethods[m] {
			return malformed(d, fmt.Sprintf("method %q is reserved", m))
		}
	}
	for _, t := range d.MessageTypes {
		if protocol.Reserved(t) {
			return malformed(d, fmt.Sprintf("message type %q is reserved", t))
		}
	}
	return nil
}

var reservedMethods = map[string]bool{"focus": true, "state": true}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
