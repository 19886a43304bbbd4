package engine

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidArgs    = errors.New("invalid command arguments")
	ErrReadOnly       = errors.New("editor is not editable")
	ErrUnknownHandle  = errors.New("unknown plugin handle")
	ErrDuplicate      = errors.New("plugin already registered")
	ErrEmptyPlugin    = errors.New("plugin name is empty")
)

// Kind classifies a plugin for the engine.
type Kind string

const (
	KindExtension  Kind = "extension"
	KindMark       Kind = "mark"
	KindNode       Kind = "node"
	KindSuggestion Kind = "suggestion"
)

// Plugin is the definition an extension hands, unmodified, to the engine.
type Plugin struct {
	Name    string
	Kind    Kind
	Options map[string]any
}

// Handle identifies a registered plugin. Extensions hold the handle returned
// by Register to reach their plugin's state.
type Handle struct {
	id   int
	name string
}

// Name returns the plugin name the handle was issued for.
func (h Handle) Name() string { return h.name }

// Valid reports whether the handle came from a successful registration.
func (h Handle) Valid() bool { return h.id > 0 }

// Command names understood by engines.
const (
	CmdToggleMark      = "toggleMark"
	CmdSetMark         = "setMark"
	CmdUnsetMark       = "unsetMark"
	CmdToggleNode      = "toggleNode"
	CmdSetTextAlign    = "setTextAlign"
	CmdUnsetTextAlign  = "unsetTextAlign"
	CmdInsertContent   = "insertContent"
	CmdInsertContentAt = "insertContentAt"
	CmdSetContent      = "setContent"
	CmdSetEditable     = "setEditable"
	CmdUndo            = "undo"
	CmdRedo            = "redo"
)

// Command is a named engine operation.
type Command struct {
	Name string
	Args any
}

// MarkArgs sets a mark with attributes, e.g. a link with an href.
type MarkArgs struct {
	Name  string
	Attrs map[string]any
}

// NodeArgs toggles the current block between paragraph and Type.
type NodeArgs struct {
	Type  string
	Attrs map[string]any
}

// InsertAt replaces Range with Nodes.
type InsertAt struct {
	Range Range
	Nodes []Node
}

// Range is a half-open span of document positions.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Node is an inline content node. Type "text" carries Text; any other type
// is an atom rendered from its attributes.
type Node struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// SuggestionState is the state kept by suggestion plugins (mention, hashtag).
type SuggestionState struct {
	Active bool   `json:"active"`
	Char   string `json:"char"`
	Query  string `json:"query"`
	Range  Range  `json:"range"`
}

// Engine is the contract the bridge runtime drives.
type Engine interface {
	// Register installs a plugin with its per-extension configuration.
	Register(p Plugin, config json.RawMessage) (Handle, error)
	// PluginState returns the state of the plugin behind h.
	PluginState(h Handle) (any, error)

	Exec(cmd Command) error
	Can(cmd Command) bool

	IsActive(name string, attrs map[string]any) bool
	Attributes(name string) map[string]any

	Focus(pos string) error
	Blur() error
	Focused() bool
	Editable() bool

	Selection() Range
	TextBetween(from, to int) string

	SetContent(html string) error
	HTML() string
	Text() string

	// OnUpdate registers fn to run after every change. The returned func
	// removes it.
	OnUpdate(fn func()) func()
}
