package bridges

import (
	"encoding/json"
	"strings"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const TypeSetLink protocol.Type = "link-set"

// Link sets or removes a link on the selection. An empty or null href
// removes it.
func Link() *extension.Descriptor {
	methods, contribute := instance(method{name: "setLink", typ: TypeSetLink})
	h := handlers{
		TypeSetLink: func(ctx *extension.Context, msg protocol.Message) error {
			var href string
			if msg.HasPayload() {
				if err := msg.Decode(&href); err != nil {
					return err
				}
			}
			if strings.TrimSpace(href) == "" {
				return ctx.Engine.Exec(engine.Command{Name: engine.CmdUnsetMark, Args: "link"})
			}
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdSetMark,
				Args: engine.MarkArgs{Name: "link", Attrs: map[string]any{"href": href}},
			})
		},
	}

	return &extension.Descriptor{
		Name:   "link",
		Plugin: &engine.Plugin{Name: "link", Kind: engine.KindMark},
		Config: json.RawMessage(`{"openOnClick":false}`),
		StateKeys: []string{"isLinkActive", "activeLink", "canSetLink"},
		InitialState: extension.State{
			"isLinkActive": false,
			"activeLink":   nil,
			"canSetLink":   false,
		},
		ContributeState: func(ctx *extension.Context) extension.State {
			st := extension.State{
				"isLinkActive": ctx.Engine.IsActive("link", nil),
				"activeLink":   nil,
				"canSetLink":   ctx.Engine.Can(engine.Command{Name: engine.CmdSetMark}),
			}
			if href, ok := ctx.Engine.Attributes("link")["href"]; ok {
				st["activeLink"] = href
			}
			return st
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
