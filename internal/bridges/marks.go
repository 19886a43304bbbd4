package bridges

import (
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// markBridge toggles one engine mark. label is the capitalized name used
// in the method, message type and state keys.
func markBridge(mark, label string) *extension.Descriptor {
	typ := protocol.Type("toggle-" + label)
	methods, contribute := instance(method{name: "toggle" + label, typ: typ, noPayload: true})
	cmd := engine.Command{Name: engine.CmdToggleMark, Args: mark}
	h := handlers{typ: exec(engine.CmdToggleMark, mark)}

	active, can := "is"+label+"Active", "canToggle"+label
	return &extension.Descriptor{
		Name:      mark,
		Plugin:    &engine.Plugin{Name: mark, Kind: engine.KindMark},
		StateKeys: []string{active, can},
		InitialState: extension.State{
			active: false,
			can:    false,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{
				active: ctx.Engine.IsActive(mark, nil),
				can:    ctx.Engine.Can(cmd),
			}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}

// Bold toggles bold text.
func Bold() *extension.Descriptor { return markBridge("bold", "Bold") }

// Italic toggles italic text.
func Italic() *extension.Descriptor { return markBridge("italic", "Italic") }

// Underline toggles underlined text.
func Underline() *extension.Descriptor { return markBridge("underline", "Underline") }

// Strike toggles struck-through text.
func Strike() *extension.Descriptor { return markBridge("strike", "Strike") }

// Code toggles inline code.
func Code() *extension.Descriptor { return markBridge("code", "Code") }
