package bridges

import (
	"github.com/GriffinCanCode/richbridge/internal/engine"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// DefaultPlaceholder is shown in an empty document.
const DefaultPlaceholder = "Write something..."

// PlaceholderConfig is the placeholder configuration blob.
type PlaceholderConfig struct {
	Placeholder string `json:"placeholder"`
}

const placeholderCSS = `.ProseMirror p.is-editor-empty:first-child::before {
  color: #adb5bd;
  content: attr(data-placeholder);
  float: left;
  height: 0;
  pointer-events: none;
}`

// Placeholder shows text in an empty document. It only carries engine
// configuration and CSS.
func Placeholder(text string) *extension.Descriptor {
	if text == "" {
		text = DefaultPlaceholder
	}
	cfg, _ := protocol.Marshal(PlaceholderConfig{Placeholder: text})

	return &extension.Descriptor{
		Name:   "placeholder",
		Plugin: &engine.Plugin{Name: "placeholder", Kind: engine.KindExtension},
		Config: cfg,
		CSS:    placeholderCSS,
	}
}
