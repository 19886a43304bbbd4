package sandbox

import (
	"errors"
	"time"

	"github.com/dop251/goja"
)

var (
	ErrClosed  = errors.New("sandbox closed")
	ErrTimeout = errors.New("sandbox execution timeout exceeded")
	ErrPanic   = errors.New("sandbox task panicked")
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration // Per-task execution timeout
	MaxCallStackSize int           // Maximum script call depth
	EnableConsole    bool          // Allow console.log/warn/error
	EnableDOM        bool          // Provide document with head and body
}

// DefaultConfig returns the default sandbox configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		EnableDOM:        true,
	}
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error, debug
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DOMChange represents a DOM modification
type DOMChange struct {
	Type   string // append_child, set_attribute, set_text
	Target string // Tag name of the modified element
	Value  string // Appended tag, attribute assignment or text
}

// Program is the document's own code. It runs on the sandbox loop with
// direct access to the realm, after the bootstrap script and before the
// load event.
type Program func(vm *goja.Runtime) error

// Document is what a sandbox loads: the bootstrap script installed before
// the program runs and the script run once the document has loaded.
type Document struct {
	Before  string
	Program Program
	After   string
}
