package bridges

import (
	"errors"
	"fmt"
	"slices"

	"github.com/GriffinCanCode/richbridge/internal/extension"
)

var ErrUnknownBridge = errors.New("unknown bridge")

// StarterKit returns the general-purpose bridges in registration order.
func StarterKit() []*extension.Descriptor {
	return []*extension.Descriptor{
		Bold(),
		History(),
		Code(),
		Italic(),
		Strike(),
		Underline(),
		Heading(),
		Image(),
		Blockquote(),
		Link(),
		Color(),
		Highlight(),
		Core(nil),
		Placeholder(""),
		HardBreak(),
		TextAlign(),
	}
}

// byName builds each bridge by extension name.
var byName = map[string]func() *extension.Descriptor{
	"bold":        Bold,
	"italic":      Italic,
	"underline":   Underline,
	"strike":      Strike,
	"code":        Code,
	"history":     History,
	"heading":     Heading,
	"blockquote":  Blockquote,
	"textAlign":   TextAlign,
	"link":        Link,
	"color":       Color,
	"highlight":   Highlight,
	"image":       Image,
	"hardBreak":   HardBreak,
	"placeholder": func() *extension.Descriptor { return Placeholder("") },
	"core":        func() *extension.Descriptor { return Core(nil) },
	"mention":     Mention,
	"hashtag":     HashTag,
	"youtube":     Youtube,
}

// Names lists every known bridge name, sorted.
func Names() []string {
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Select builds the named bridges in the given order. An empty list
// selects the starter kit.
func Select(names []string) ([]*extension.Descriptor, error) {
	if len(names) == 0 {
		return StarterKit(), nil
	}
	out := make([]*extension.Descriptor, 0, len(names))
	for _, name := range names {
		build, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBridge, name)
		}
		out = append(out, build())
	}
	return out, nil
}
