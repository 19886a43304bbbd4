package protocol

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Names of the sandbox globals installed before the document scripts run.
const (
	GlobalConfig         = "plugConfig"
	GlobalWhitelist      = "whiteListPlugins"
	GlobalInitialContent = "initialContent"
)

// Bootstrap is the one-time configuration the host hands to the sandbox at
// load time.
type Bootstrap struct {
	// Config holds each extension's configuration blob, keyed by extension name.
	Config map[string]json.RawMessage
	// Whitelist names the extensions the sandbox may activate. Nil allows all.
	Whitelist []string
	// InitialContent is the serialized document to start from, if any.
	InitialContent string
	// CSS is appended to the document head after load.
	CSS string
}

// Allows reports whether the whitelist permits activating name.
func (b Bootstrap) Allows(name string) bool {
	if b.Whitelist == nil {
		return true
	}
	return slices.Contains(b.Whitelist, name)
}

// BeforeContentScript renders the globals installed before the document loads.
func (b Bootstrap) BeforeContentScript() (string, error) {
	var sb strings.Builder

	if b.Config != nil {
		cfg, err := api.Marshal(b.Config)
		if err != nil {
			return "", fmt.Errorf("encode extension config: %w", err)
		}
		fmt.Fprintf(&sb, "window.%s = %s;\n", GlobalConfig, Quote(string(cfg)))
	}
	if b.Whitelist != nil {
		list, err := api.Marshal(b.Whitelist)
		if err != nil {
			return "", fmt.Errorf("encode whitelist: %w", err)
		}
		fmt.Fprintf(&sb, "window.%s = %s;\n", GlobalWhitelist, jsLiteral(list))
	}
	if b.InitialContent != "" {
		fmt.Fprintf(&sb, "window.%s = %s;\n", GlobalInitialContent, Quote(b.InitialContent))
	}
	return sb.String(), nil
}

// AfterContentScript renders the style injection run once the document has
// loaded. It is empty when no extension contributes CSS.
func (b Bootstrap) AfterContentScript() string {
	if strings.TrimSpace(b.CSS) == "" {
		return ""
	}
	return fmt.Sprintf(`(function () {
  var css = %s,
    head = document.head || document.getElementsByTagName('head')[0],
    style = document.createElement('style');
  head.appendChild(style);
  style.type = 'text/css';
  style.appendChild(document.createTextNode(css));
})();
`, Quote(b.CSS))
}

// ReadBootstrap reconstructs the bootstrap from sandbox globals. lookup
// returns the exported value of a global, or nil when it is undefined.
func ReadBootstrap(lookup func(name string) any) (Bootstrap, error) {
	var b Bootstrap

	switch cfg := lookup(GlobalConfig).(type) {
	case nil:
	case string:
		if cfg != "" {
			if err := api.Unmarshal([]byte(cfg), &b.Config); err != nil {
				return Bootstrap{}, fmt.Errorf("%s: %w", GlobalConfig, err)
			}
		}
	default:
		raw, err := api.Marshal(cfg)
		if err != nil {
			return Bootstrap{}, fmt.Errorf("%s: %w", GlobalConfig, err)
		}
		if err := api.Unmarshal(raw, &b.Config); err != nil {
			return Bootstrap{}, fmt.Errorf("%s: %w", GlobalConfig, err)
		}
	}

	switch list := lookup(GlobalWhitelist).(type) {
	case nil:
	case []string:
		b.Whitelist = append([]string{}, list...)
	case []any:
		b.Whitelist = make([]string, 0, len(list))
		for _, v := range list {
			name, ok := v.(string)
			if !ok {
				return Bootstrap{}, fmt.Errorf("%s: non-string entry %v", GlobalWhitelist, v)
			}
			b.Whitelist = append(b.Whitelist, name)
		}
	default:
		return Bootstrap{}, fmt.Errorf("%s: unexpected %T", GlobalWhitelist, list)
	}

	if content, ok := lookup(GlobalInitialContent).(string); ok {
		b.InitialContent = content
	}
	return b, nil
}
