package bridges

import (
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeUndo protocol.Type = "undo"
	TypeRedo protocol.Type = "redo"
)

// History adds undo and redo.
func History() *extension.Descriptor {
	methods, contribute := instance(
		method{name: "undo", typ: TypeUndo, noPayload: true},
		method{name: "redo", typ: TypeRedo, noPayload: true},
	)
	h := handlers{
		TypeUndo: exec(engine.CmdUndo, nil),
		TypeRedo: exec(engine.CmdRedo, nil),
	}

	return &extension.Descriptor{
		Name:         "history",
		Plugin:       &engine.Plugin{Name: "history", Kind: engine.KindExtension},
		StateKeys:    []string{"canUndo", "canRedo"},
		InitialState: extension.State{"canUndo": false, "canRedo": false},
		ContributeState: func(ctx *extension.Context) extension.State {
			return extension.State{
				"canUndo": ctx.Engine.Can(engine.Command{Name: engine.CmdUndo}),
				"canRedo": ctx.Engine.Can(engine.Command{Name: engine.CmdRedo}),
			}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}
