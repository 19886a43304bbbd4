package bridges

import (
	"errors"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const TypeInsertYoutube protocol.Type = "insert-Youtube"

var ErrNoSource = errors.New("youtube video has no src")

// Video describes an embedded video.
type Video struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Youtube embeds videos at the selection.
func Youtube() *extension.Descriptor {
	methods, contribute := instance(method{name: "insertYoutube", typ: TypeInsertYoutube})
	h := handlers{
		TypeInsertYoutube: func(ctx *extension.Context, msg protocol.Message) error {
			var v Video
			if err := msg.Decode(&v); err != nil {
				return err
			}
			if v.Src == "" {
				return ErrNoSource
			}
			if v.Width == 0 {
				v.Width = 640
			}
			if v.Height == 0 {
				v.Height = 480
			}
			return ctx.Engine.Exec(engine.Command{
				Name: engine.CmdInsertContent,
				Args: engine.Node{
					Type:  ctx.Handle.Name(),
					Attrs: map[string]any{"src": v.Src, "width": v.Width, "height": v.Height},
				},
			})
		},
	}

	return &extension.Descriptor{
		Name:               "youtube",
		Plugin:             &engine.Plugin{Name: "youtube", Kind: engine.KindNode},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
