package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/richbridge/internal/protocol"
)

var ErrUnsupportedFormat = errors.New("unsupported extensions file format")

// Extensions selects the bridges an editor carries and overrides their
// configuration blobs.
type Extensions struct {
	// Enabled names the bridges to compose. Empty means the starter kit.
	Enabled []string `yaml:"enabled" toml:"enabled"`
	// Config is each bridge's configuration, keyed by extension name.
	Config map[string]map[string]any `yaml:"config" toml:"config"`
}

// LoadExtensions reads a YAML (.yaml, .yml) or TOML (.toml) extensions
// file. An empty path yields an empty selection.
func LoadExtensions(path string) (*Extensions, error) {
	if path == "" {
		return &Extensions{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extensions file: %w", err)
	}
	return ParseExtensions(data, filepath.Ext(path))
}

// ParseExtensions decodes an extensions document. format is a file
// extension such as ".yaml" or ".toml".
func ParseExtensions(data []byte, format string) (*Extensions, error) {
	var ext Extensions

	switch strings.ToLower(format) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ext); err != nil {
			return nil, fmt.Errorf("parse yaml extensions: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &ext); err != nil {
			return nil, fmt.Errorf("parse toml extensions: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &ext, nil
}

// RawConfig encodes each extension's configuration as the JSON blob the
// sandbox receives.
func (e *Extensions) RawConfig() (map[string]json.RawMessage, error) {
	if len(e.Config) == 0 {
		return nil, nil
	}

	out := make(map[string]json.RawMessage, len(e.Config))
	for name, cfg := range e.Config {
		raw, err := protocol.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("encode %s config: %w", name, err)
		}
		out[name] = raw
	}
	return out, nil
}
