package http

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/GriffinCanCode/richbridge/internal/bridges"
	"github.com/GriffinCanCode/richbridge/internal/editor"
	"github.com/GriffinCanCode/richbridge/internal/extension"
	"github.com/GriffinCanCode/richbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/richbridge/internal/sandbox"
	"github.com/GriffinCanCode/richbridge/internal/surface"
)

// MountRequest overrides the configured defaults for one editor.
type MountRequest struct {
	InitialContent *string                    `json:"initialContent,omitempty"`
	Autofocus      *bool                      `json:"autofocus,omitempty"`
	FocusPosition  string                     `json:"focusPosition,omitempty"`
	Extensions     []string                   `json:"extensions,omitempty"`
	Whitelist      []string                   `json:"whitelist,omitempty"`
	Config         map[string]json.RawMessage `json:"config,omitempty"`
}

// Specs builds editor specs from the host configuration.
type Specs struct {
	editor    config.EditorConfig
	sandbox   sandbox.Config
	enabled   []string
	extConfig map[string]json.RawMessage
}

// NewSpecs resolves the extensions file, if any, and checks that every
// enabled extension exists.
func NewSpecs(cfg *config.Config) (*Specs, error) {
	s := &Specs{
		editor:  cfg.Editor,
		sandbox: sandbox.DefaultConfig(),
	}
	s.sandbox.Timeout = cfg.Sandbox.Timeout
	s.sandbox.EnableConsole = cfg.Sandbox.Console

	if cfg.Extensions.File != "" {
		ext, err := config.LoadExtensions(cfg.Extensions.File)
		if err != nil {
			return nil, err
		}
		raw, err := ext.RawConfig()
		if err != nil {
			return nil, err
		}
		s.enabled = ext.Enabled
		s.extConfig = raw
	}

	if _, err := bridges.Select(s.enabled); err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	return s, nil
}

// Enabled returns the configured extension names. Empty means the
// starter kit.
func (s *Specs) Enabled() []string { return s.enabled }

// Default returns the spec of an editor with the configured defaults.
func (s *Specs) Default() surface.Spec {
	spec, _ := s.Build(MountRequest{})
	return spec
}

// Build applies req on top of the configured defaults.
func (s *Specs) Build(req MountRequest) (surface.Spec, error) {
	names := s.enabled
	if len(req.Extensions) > 0 {
		names = req.Extensions
	}
	if _, err := bridges.Select(names); err != nil {
		return surface.Spec{}, err
	}

	cfg := editor.Config{
		Autofocus:      s.editor.Autofocus,
		FocusPosition:  s.editor.FocusPosition,
		InitialContent: s.editor.InitialContent,
		Whitelist:      req.Whitelist,
	}
	if req.InitialContent != nil {
		cfg.InitialContent = *req.InitialContent
	}
	if req.Autofocus != nil {
		cfg.Autofocus = *req.Autofocus
	}
	if req.FocusPosition != "" {
		cfg.FocusPosition = req.FocusPosition
	}
	if len(s.extConfig) > 0 || len(req.Config) > 0 {
		cfg.ExtensionConfig = make(map[string]json.RawMessage, len(s.extConfig)+len(req.Config))
		maps.Copy(cfg.ExtensionConfig, s.extConfig)
		maps.Copy(cfg.ExtensionConfig, req.Config)
	}

	return surface.Spec{
		Descriptors: func() []*extension.Descriptor {
			descs, _ := bridges.Select(names)
			return descs
		},
		Editor:  cfg,
		Sandbox: s.sandbox,
	}, nil
}
