package bridges

import (
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeSetTextAlign   protocol.Type = "toggle-TextAlign"
	TypeUnSetTextAlign protocol.Type = "toggle-UnSetTextAlign"
)

var alignments = map[string]string{
	"left":    "isTextAlignLeft",
	"right":   "isTextAlignRight",
	"center":  "isTextAlignCenter",
	"justify": "isTextAlignJustify",
}

// TextAlign aligns headings and paragraphs.
func TextAlign() *extension.Descriptor {
	methods, contribute := instance(
		method{name: "setTextAlign", typ: TypeSetTextAlign},
		method{name: "unSetTextAlign", typ: TypeUnSetTextAlign, noPayload: true},
	)
	h := handlers{
		TypeSetTextAlign: func(ctx *extension.Context, msg protocol.Message) error {
			var align string
			if msg.HasPayload() {
				if err := msg.Decode(&align); err != nil {
					return err
				}
			}
			return ctx.Engine.Exec(engine.Command{Name: engine.CmdSetTextAlign, Args: align})
		},
		TypeUnSetTextAlign: exec(engine.CmdUnsetTextAlign, nil),
	}

	keys := make([]string, 0, len(alignments))
	initial := make(extension.State, len(alignments))
	for _, key := range alignments {
		keys = append(keys, key)
		initial[key] = false
	}

	return &extension.Descriptor{
		Name: "textAlign",
		Plugin: &engine.Plugin{
			Name:    "textAlign",
			Kind:    engine.KindExtension,
			Options: map[string]any{"types": []string{"heading", "paragraph"}},
		},
		StateKeys:    keys,
		InitialState: initial,
		ContributeState: func(ctx *extension.Context) extension.State {
			out := make(extension.State, len(alignments))
			for align, key := range alignments {
				out[key] = ctx.Engine.IsActive("", map[string]any{"textAlign": align})
			}
			return out
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
