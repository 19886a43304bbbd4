package bridges

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

const (
	TypeInsertMention protocol.Type = "insert-Mention"
	TypeInsertHashTag protocol.Type = "insert-HashTag"
)

var ErrEmptyItem = errors.New("suggestion item has no id or label")

// Item is a suggestion picked on the host: a user for mentions, a tag for
// hashtags.
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type suggestion struct {
	name     string
	char     string
	method   string
	typ      protocol.Type
	stateKey string
}

// Mention inserts @user nodes over the active "@" suggestion.
func Mention() *extension.Descriptor {
	return suggestionBridge(suggestion{
		name:     "mention",
		char:     "@",
		method:   "insertMention",
		typ:      TypeInsertMention,
		stateKey: "queryMention",
	})
}

// HashTag inserts #tag nodes over the active "#" suggestion.
func HashTag() *extension.Descriptor {
	return suggestionBridge(suggestion{
		name:     "hashtag",
		char:     "#",
		method:   "insertHashTag",
		typ:      TypeInsertHashTag,
		stateKey: "queryHashTag",
	})
}

func suggestionBridge(s suggestion) *extension.Descriptor {
	methods, contribute := instance(method{name: s.method, typ: s.typ})
	h := handlers{s.typ: insertItem}

	return &extension.Descriptor{
		Name:       s.name,
		ForcedName: s.name,
		Plugin: &engine.Plugin{
			Name: s.name,
			Kind: engine.KindSuggestion,
			Options: map[string]any{
				"char":                       s.char,
				"deleteTriggerWithBackspace": true,
			},
		},
		StateKeys:    []string{s.stateKey},
		InitialState: extension.State{s.stateKey: nil},
		ContributeState: func(ctx *extension.Context) extension.State {
			st, err := suggestionState(ctx)
			if err != nil || !st.Active {
				return extension.State{s.stateKey: nil}
			}
			return extension.State{s.stateKey: st.Query}
		},
		Methods:            methods,
		ContributeInstance: contribute,
		MessageTypes:       h.types(),
		HandleMessage:      h.handle,
	}
}

func suggestionState(ctx *extension.Context) (engine.SuggestionState, error) {
	v, err := ctx.PluginState()
	if err != nil {
		return engine.SuggestionState{}, err
	}
	st, ok := v.(engine.SuggestionState)
	if !ok {
		return engine.SuggestionState{}, fmt.Errorf("%s: unexpected plugin state %T", ctx.Handle.Name(), v)
	}
	return st, nil
}

// insertItem replaces the active suggestion (or the selection when none
// is active) with the item node and a trailing space. A space already
// following the range is absorbed.
func insertItem(ctx *extension.Context, msg protocol.Message) error {
	var item Item
	if err := msg.Decode(&item); err != nil {
		return err
	}
	if item.ID == "" && item.Label == "" {
		return ErrEmptyItem
	}

	st, err := suggestionState(ctx)
	if err != nil {
		return err
	}
	rng := st.Range
	if !st.Active {
		rng = ctx.Engine.Selection()
	}
	if ctx.Engine.TextBetween(rng.To, rng.To+1) == " " {
		rng.To++
	}

	return ctx.Engine.Exec(engine.Command{
		Name: engine.CmdInsertContentAt,
		Args: engine.InsertAt{
			Range: rng,
			Nodes: []engine.Node{
				{Type: ctx.Handle.Name(), Attrs: map[string]any{"id": item.ID, "label": item.Label}},
				{Type: "text", Text: " "},
			},
		},
	})
}
