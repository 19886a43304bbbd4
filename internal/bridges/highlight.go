package bridges

import (
	"strings"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeToggleHighlight protocol.Type = "toggle-highlight"
	TypeSetHighlight    protocol.Type = "set-highlight"
	TypeUnsetHighlight  protocol.Type = "unset-highlight"
)

// Highlight marks the selection with a background color. Highlights may
// carry a color; a plain toggle uses the default one.
func Highlight() *extension.Descriptor {
	methods, contribute := instance(
		method{name: "toggleHighlight", typ: TypeToggleHighlight, noPayload: true},
		method{name: "setHighlight", typ: TypeSetHighlight},
		method{name: "unsetHighlight", typ: TypeUnsetHighlight, noPayload: true},
	)
	cmd := engine.Command{Name: engine.CmdToggleMark, Args: "highlight"}
	h := handlers{
		TypeToggleHighlight: exec(engine.CmdToggleMark, "highlight"),
		TypeSetHighlight: func(ctx *extension.Context, msg protocol.Message) error {
			var color string
			if msg.HasPayload() {
				if err := msg.Decode(&color); err != nil {
					return err
				}
			}
			args := engine.MarkArgs{Name: "highlight"}
			if color = strings.TrimSpace(color); color != "" {
				args.Attrs = map[string]any{"color": color}
			}
			return ctx.Engine.Exec(engine.Command{Name: engine.CmdSetMark, Args: args})
		},
		TypeUnsetHighlight: exec(engine.CmdUnsetMark, "highlight"),
	}

	return &extension.Descriptor{
		Name:      "highlight",
		Plugin:    &engine.Plugin{Name: "highlight", Kind: engine.KindMark},
		StateKeys: []string{"isHighlightActive", "canToggleHighlight", "activeHighlight"},
		InitialState: extension.State{
			"isHighlightActive":  false,
			"canToggleHighlight": false,
			"activeHighlight":    nil,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{
				"isHighlightActive":  ctx.Engine.IsActive("highlight", nil),
				"canToggleHighlight": ctx.Engine.Can(cmd),
				"activeHighlight":    activeAttr(ctx, "highlight", "color"),
			}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
