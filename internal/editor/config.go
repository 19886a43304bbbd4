package editor

import "encoding/json"

// Config holds per-editor settings.
type Config struct {
	// Autofocus sends a focus command right after the ready flush.
	Autofocus bool
	// FocusPosition is the autofocus target: "start", "end", "all" or a
	// document position.
	FocusPosition string
	// InitialContent is applied by the sandbox before it reports ready.
	InitialContent string
	// Whitelist limits which extensions the sandbox activates. Nil means
	// the composed extensions.
	Whitelist []string
	// ExtensionConfig overrides the default configuration blob of the
	// named extensions.
	ExtensionConfig map[string]json.RawMessage
}

// DefaultConfig returns the default editor configuration.
func DefaultConfig() Config {
	return Config{
		FocusPosition: "end",
	}
}
