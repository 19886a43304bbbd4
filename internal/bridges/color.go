package bridges

import (
	"strings"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeSetColor   protocol.Type = "set-color"
	TypeUnsetColor protocol.Type = "unset-color"
)

// textStyle is the engine mark that carries text color.
const textStyle = "textStyle"

// Color sets the text color of the selection. An empty color unsets it.
func Color() *extension.Descriptor {
	methods, contribute := instance(
		method{name: "setColor", typ: TypeSetColor},
		method{name: "unsetColor", typ: TypeUnsetColor, noPayload: true},
	)
	h := handlers{
		TypeSetColor: func(ctx *extension.Context, msg protocol.Message) error {
			var color string
			if msg.HasPayload() {
				if err := msg.Decode(&color); err != nil {
					return err
				}
			}
			if strings.TrimSpace(color) == "" {
				return ctx.Engine.Exec(engine.Command{Name: engine.CmdUnsetMark, Args: textStyle})
			}
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdSetMark,
				Args: engine.MarkArgs{Name: textStyle, Attrs: map[string]any{"color": color}},
			})
		},
		TypeUnsetColor: exec(engine.CmdUnsetMark, textStyle),
	}

	return &extension.Descriptor{
		Name:      "color",
		Plugin:    &engine.Plugin{Name: "color", Kind: engine.KindExtension},
		StateKeys: []string{"activeColor"},
		InitialState: extension.State{
			"activeColor": nil,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{"activeColor": activeAttr(ctx, textStyle, "color")}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}

// activeAttr returns attribute key of the active mark, or nil.
func activeAttr(ctx *extension.Context, mark, key string) any {
	if v, ok := ctx.Engine.Attributes(mark)[key]; ok {
		return v
	}
	return nil
}
