package bridges

import (
	"errors"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeSetImage     protocol.Type = "set-image"
	TypeSetHardBreak protocol.Type = "set-hard-break"
)

var ErrNoImageSource = errors.New("image has no src")

// Picture describes an inline image. A bare string payload is taken as Src.
type Picture struct {
	Src   string `json:"src"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// Image inserts images at the selection.
func Image() *extension.Descriptor {
	methods, contribute := instance(method{name: "setImage", typ: TypeSetImage})
	h := handlers{
		TypeSetImage: func(ctx *extension.Context, msg protocol.Message) error {
			var p Picture
			if err := msg.Decode(&p.Src); err != nil {
				if err := msg.Decode(&p); err != nil {
					return err
				}
			}
			if p.Src == "" {
				return ErrNoImageSource
			}
			attrs := map[string]any{"src": p.Src}
			if p.Alt != "" {
				attrs["alt"] = p.Alt
			}
			if p.Title != "" {
				attrs["title"] = p.Title
			}
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdInsertContent,
				Args: engine.Node{Type: ctx.Handle.Name(), Attrs: attrs},
			})
		},
	}

	return &extension.Descriptor{
		Name:               "image",
		Plugin:             &engine.Plugin{Name: "image", Kind: engine.KindNode},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}

// HardBreak inserts line breaks inside the current block.
func HardBreak() *extension.Descriptor {
	methods, contribute := instance(method{name: "setHardBreak", typ: TypeSetHardBreak, noPayload: true})
	h := handlers{
		TypeSetHardBreak: func(ctx *extension.Context, _ protocol.Message) error {
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdInsertContent,
				Args: engine.Node{Type: ctx.Handle.Name()},
			})
		},
	}

	return &extension.Descriptor{
		Name:               "hardBreak",
		Plugin:             &engine.Plugin{Name: "hardBreak", Kind: engine.KindNode},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
