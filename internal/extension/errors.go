package extension

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig matches every *ConfigError.
	ErrConfig        = errors.New("extension configuration error")
	ErrUnknownMethod = errors.New("unknown instance method")
	ErrHandlerFault  = errors.New("extension handler fault")
)

// Collision and validation kinds reported by ConfigError.
const (
	KindStateKey     = "state key"
	KindMethod       = "method"
	KindEnginePlugin = "engine plugin"
	KindDescriptor   = "descriptor"
)

// ConfigError is a composition-time failure. Name is the colliding key or
// the malformed descriptor; Extensions lists every descriptor involved.
type ConfigError struct {
	Kind       string
	Name       string
	Extensions []string
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.Kind == KindDescriptor {
		return fmt.Sprintf("extension %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("%s %q contributed by more than one extension: %s",
		e.Kind, e.Name, strings.Join(e.Extensions, ", "))
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

func malformed(d *Descriptor, reason string) *ConfigError {
	return &ConfigError{Kind: KindDescriptor, Name: d.Name, Extensions: []string{d.Name}, Reason: reason}
}
