package bridges

import (
	"fmt"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeToggleHeading    protocol.Type = "toggle-Heading"
	TypeToggleBlockquote protocol.Type = "toggle-Blockquote"
)

// Heading toggles the current block between a paragraph and a heading of
// the given level (1-6).
func Heading() *extension.Descriptor {
	methods, contribute := instance(method{name: "toggleHeading", typ: TypeToggleHeading})
	h := handlers{
		TypeToggleHeading: func(ctx *extension.Context, msg protocol.Message) error {
			var level int
			if err := msg.Decode(&level); err != nil {
				return err
			}
			if level < 1 || level > 6 {
				return fmt.Errorf("%w: heading level %d", engine.ErrInvalidArgs, level)
			}
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdToggleNode,
				Args: engine.NodeArgs{Type: "heading", Attrs: map[string]any{"level": level}},
			})
		},
	}

	return &extension.Descriptor{
		Name: "heading",
		Plugin: &engine.Plugin{
			Name:    "heading",
			Kind:    engine.KindNode,
			Options: map[string]any{"levels": []int{1, 2, 3, 4, 5, 6}},
		},
		StateKeys:    []string{"headingLevel"},
		InitialState: extension.State{"headingLevel": nil},
		ContributeState: func(ctx *extension.Context) extension.State {
			if !ctx.Engine.IsActive("heading", nil) {
				return extension.State{"headingLevel": nil}
			}
			return extension.State{"headingLevel": ctx.Engine.Attributes("heading")["level"]}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}

// Blockquote toggles the current block in and out of a quote.
func Blockquote() *extension.Descriptor {
	methods, contribute := instance(method{name: "toggleBlockquote", typ: TypeToggleBlockquote, noPayload: true})
	args := engine.NodeArgs{Type: "blockquote"}
	h := handlers{TypeToggleBlockquote: exec(engine.CmdToggleNode, args)}

	return &extension.Descriptor{
		Name:      "blockquote",
		Plugin:    &engine.Plugin{Name: "blockquote", Kind: engine.KindNode},
		StateKeys: []string{"isBlockquoteActive", "canToggleBlockquote"},
		InitialState: extension.State{
			"isBlockquoteActive":  false,
			"canToggleBlockquote": false,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{
				"isBlockquoteActive":  ctx.Engine.IsActive("blockquote", nil),
				"canToggleBlockquote": ctx.Engine.Can(engine.Command{Name: engine.CmdToggleNode, Args: args}),
			}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
		CSS:                "blockquote { border-left: 3px solid #babaca; padding-left: 1rem; }",
	}
}
