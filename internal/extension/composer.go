package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// Option configures a Composition.
type Option func(*Composition)

// WithLogger sets the logger used for extension faults.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composition) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFaultHook registers fn to be told about every isolated extension fault.
func WithFaultHook(fn func(extension string)) Option {
	return func(c *Composition) { c.onFault = fn }
}

// Composition is the merged result of a descriptor list. It is immutable
// once built.
type Composition struct {
	registered []*Descriptor
	ordered    []*Descriptor

	methods     map[string]Command
	methodOwner map[string]string
	stateOwner  map[string]string
	routes      map[protocol.Type][]*Descriptor

	logger  *zap.Logger
	onFault func(extension string)
}

// Compose merges descs. Descriptors sharing a ForcedName are replaced by the
// last one registered, which keeps its own position. The plugin chain is
// ordered by descending priority, ties in registration order.
//
// When send is nil no instance API is built; the sandbox composes this way.
// Every collision is reported, joined into one error.
func Compose(descs []*Descriptor, send SendFunc, opts ...Option) (*Composition, error) {
	c := &Composition{
		methods:     make(map[string]Command),
		methodOwner: make(map[string]string),
		stateOwner:  make(map[string]string),
		routes:      make(map[protocol.Type][]*Descriptor),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.registered = replaceForced(descs)

	var errs []error
	for _, d := range c.registered {
		if err := d.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	errs = append(errs, collisions(KindStateKey, c.registered, func(d *Descriptor) []string {
		return d.StateKeys
	})...)
	errs = append(errs, collisions(KindMethod, c.registered, func(d *Descriptor) []string {
		return d.Methods
	})...)
	errs = append(errs, collisions(KindEnginePlugin, c.registered, func(d *Descriptor) []string {
		if d.Plugin == nil {
			return nil
		}
		return []string{d.Plugin.Name}
	})...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c.ordered = append([]*Descriptor(nil), c.registered...)
	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.ordered[i].EffectivePriority() > c.ordered[j].EffectivePriority()
	})

	for _, d := range c.ordered {
		for _, key := range d.StateKeys {
			c.stateOwner[key] = d.Key()
		}
		for _, t := range d.MessageTypes {
			c.routes[t] = append(c.routes[t], d)
		}
	}

	if send != nil {
		for _, d := range c.registered {
			if d.ContributeInstance == nil {
				continue
			}
			cmds, err := contribute(d, send)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			for name, cmd := range cmds {
				c.methods[name] = cmd
				c.methodOwner[name] = d.Key()
			}
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
	}

	return c, nil
}

// MustCompose is Compose for program initialization. It panics on a
// configuration error.
func MustCompose(descs []*Descriptor, send SendFunc, opts ...Option) *Composition {
	c, err := Compose(descs, send, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func replaceForced(descs []*Descriptor) []*Descriptor {
	last := make(map[string]int)
	for i, d := range descs {
		if d != nil && d.ForcedName != "" {
			last[d.ForcedName] = i
		}
	}

	seen := make(map[*Descriptor]bool, len(descs))
	out := make([]*Descriptor, 0, len(descs))
	for i, d := range descs {
		if d == nil || seen[d] {
			continue
		}
		if d.ForcedName != "" && last[d.ForcedName] != i {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func collisions(kind string, descs []*Descriptor, keys func(*Descriptor) []string) []error {
	owners := make(map[string][]*Descriptor)
	for _, d := range descs {
		for _, key := range keys(d) {
			if !contains(owners[key], d) {
				owners[key] = append(owners[key], d)
			}
		}
	}

	names := make([]string, 0, len(owners))
	for key, ds := range owners {
		if len(ds) > 1 {
			names = append(names, key)
		}
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, key := range names {
		exts := make([]string, len(owners[key]))
		for i, d := range owners[key] {
			exts[i] = d.Key()
		}
		errs = append(errs, &ConfigError{Kind: kind, Name: key, Extensions: exts})
	}
	return errs
}

func contribute(d *Descriptor, send SendFunc) (cmds map[string]Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = malformed(d, fmt.Sprintf("instance contributor panicked: %v", r))
		}
	}()

	cmds = d.ContributeInstance(send)
	for _, name := range d.Methods {
		if cmds[name] == nil {
			return nil, malformed(d, fmt.Sprintf("declared method %q not contributed", name))
		}
	}
	for name := range cmds {
		if !contains(d.Methods, name) {
			return nil, malformed(d, fmt.Sprintf("method %q is not declared", name))
		}
	}
	return cmds, nil
}

// Extensions returns the descriptors in plugin-chain order.
func (c *Composition) Extensions() []*Descriptor {
	return append([]*Descriptor(nil), c.ordered...)
}

// Registered returns the descriptors in registration order, after forced
// replacement.
func (c *Composition) Registered() []*Descriptor {
	return append([]*Descriptor(nil), c.registered...)
}

// Names returns extension keys in plugin-chain order.
func (c *Composition) Names() []string {
	names := make([]string, len(c.ordered))
	for i, d := range c.ordered {
		names[i] = d.Key()
	}
	return names
}

// Plugins returns the engine plugin chain.
func (c *Composition) Plugins() []engine.Plugin {
	var plugins []engine.Plugin
	for _, d := range c.ordered {
		if d.Plugin != nil {
			plugins = append(plugins, *d.Plugin)
		}
	}
	return plugins
}

// Methods returns the composed instance method names, sorted.
func (c *Composition) Methods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasMethod reports whether name is part of the instance API.
func (c *Composition) HasMethod(name string) bool {
	_, ok := c.methods[name]
	return ok
}

// Call invokes a composed instance method. A panicking method is reported
// as ErrHandlerFault.
func (c *Composition) Call(name string, payload any) (err error) {
	cmd, ok := c.methods[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}

	owner := c.methodOwner[name]
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s.%s: %v", ErrHandlerFault, owner, name, r)
			c.fault(owner, "method", err)
		}
	}()
	return cmd(payload)
}

// StateKeys returns every declared state key, sorted.
func (c *Composition) StateKeys() []string {
	keys := make([]string, 0, len(c.stateOwner))
	for key := range c.stateOwner {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// CSS joins every extension's CSS in plugin-chain order.
func (c *Composition) CSS() string {
	var parts []string
	for _, d := range c.ordered {
		if css := strings.TrimSpace(d.CSS); css != "" {
			parts = append(parts, css)
		}
	}
	return strings.Join(parts, " ")
}

// Configs returns the default configuration blob of each extension that
// has one, keyed by extension key.
func (c *Composition) Configs() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for _, d := range c.ordered {
		if len(d.Config) > 0 {
			out[d.Key()] = d.Config
		}
	}
	return out
}

func (c *Composition) fault(extension, stage string, err error) {
	c.logger.Error("Extension handler failed",
		zap.String("extension", extension),
		zap.String("stage", stage),
		zap.Error(err))
	if c.onFault != nil {
		c.onFault(extension)
	}
}

// guard runs fn behind a per-extension catch boundary.
func (c *Composition) guard(d *Descriptor, stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrHandlerFault, d.Key(), r)
		}
		if err != nil {
			c.fault(d.Key(), stage, err)
		}
	}()
	return fn()
}
