package editor

import (
	"encoding/json"

	"github.com/microcosm-cc/bluemonday"

	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

// contentPolicy strips scripts and event handlers from initial content
// before it is handed to the sandbox.
var contentPolicy = bluemonday.UGCPolicy()

// Bootstrap returns the globals the sandbox needs at load time: the
// per-extension configuration, the whitelist, the initial content and the
// aggregated CSS. The initial content is sanitized.
func (e *Editor) Bootstrap() protocol.Bootstrap {
	configs := make(map[string]json.RawMessage)
	for name, raw := range e.comp.Configs() {
		configs[name] = raw
	}
	for name, raw := range e.cfg.ExtensionConfig {
		configs[name] = raw
	}

	whitelist := e.cfg.Whitelist
	if whitelist == nil {
		whitelist = e.comp.Names()
	}

	return protocol.Bootstrap{
		Config:         configs,
		Whitelist:      whitelist,
		InitialContent: contentPolicy.Sanitize(e.cfg.InitialContent),
		CSS:            e.comp.CSS(),
	}
}

// BootstrapScripts renders Bootstrap into the script run before the
// sandbox's own scripts and the one run after its document has loaded.
func (e *Editor) BootstrapScripts() (before, after string, err error) {
	b := e.Bootstrap()
	before, err = b.BeforeContentScript()
	if err != nil {
		return "", "", err
	}
	return before, b.AfterContentScript(), nil
}
