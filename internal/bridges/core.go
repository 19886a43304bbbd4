package bridges

import (
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// Core message types.
const (
	TypeBlur           protocol.Type = "blur"
	TypeSetContent     protocol.Type = "set-content"
	TypeSetEditable    protocol.Type = "set-editable"
	TypeRequestContent protocol.Type = "request-content"
	// TypeContent is the sandbox's answer to request-content.
	TypeContent protocol.Type = "content"
)

// Content is the document reported by the sandbox.
type Content struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// Core is the baseline bridge every editor carries. onContent receives the
// answer to requestContent on the host; it may be nil.
func Core(onContent func(Content)) *extension.Descriptor {
	methods, contribute := instance(
		method{name: "blur", typ: TypeBlur, noPayload: true},
		method{name: "setContent", typ: TypeSetContent},
		method{name: "setEditable", typ: TypeSetEditable},
		method{name: "requestContent", typ: TypeRequestContent, noPayload: true},
	)

	h := handlers{
		TypeBlur: func(ctx *extension.Context, _ protocol.Message) error {
			return ctx.Engine.Blur()
		},
		TypeSetContent: func(ctx *extension.Context, msg protocol.Message) error {
			var html string
			if msg.HasPayload() {
				if err := msg.Decode(&html); err != nil {
					return err
				}
			}
			return ctx.Engine.Exec(engine.Command{Name: engine.CmdSetContent, Args: html})
		},
		TypeSetEditable: func(ctx *extension.Context, msg protocol.Message) error {
			var editable bool
			if err := msg.Decode(&editable); err != nil {
				return err
			}
			return ctx.Engine.Exec(engine.Command{Name: engine.CmdSetEditable, Args: editable})
		},
		TypeRequestContent: func(ctx *extension.Context, _ protocol.Message) error {
			msg, err := protocol.New(TypeContent, Content{HTML: ctx.Engine.HTML(), Text: ctx.Engine.Text()})
			if err != nil {
				return err
			}
			ctx.Emit(msg)
			return nil
		},
	}

	d := &extension.Descriptor{
		Name:       "core",
		ForcedName: "core",
		StateKeys:  []string{"isReady", "isFocused", "isEditable"},
		InitialState: extension.State{
			"isReady":    false,
			"isFocused":  false,
			"isEditable": true,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{
				"isReady":    true,
				"isFocused":  ctx.Engine.Focused(),
				"isEditable": ctx.Engine.Editable(),
			}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}

	if onContent != nil {
		d.EventTypes = []protocol.Type{TypeContent}
		d.HandleEvent = func(msg protocol.Message) {
			var c Content
			if err := msg.Decode(&c); err == nil {
				onContent(c)
			}
		}
	}
	return d
}
