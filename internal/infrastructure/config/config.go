package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Editor     EditorConfig
	Sandbox    SandboxConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	Extensions ExtensionsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// EditorConfig holds the defaults of every mounted editor.
type EditorConfig struct {
	Autofocus      bool   `envconfig:"EDITOR_AUTOFOCUS" default:"false"`
	FocusPosition  string `envconfig:"EDITOR_FOCUS_POSITION" default:"end"`
	InitialContent string `envconfig:"EDITOR_INITIAL_CONTENT"`
	// BundleURL is the editor bundle the web page loads.
	BundleURL string `envconfig:"EDITOR_BUNDLE_URL" default:"/static/editor.js"`
}

// SandboxConfig holds script sandbox configuration.
type SandboxConfig struct {
	Timeout time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"5s"`
	Console bool          `envconfig:"SANDBOX_CONSOLE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ExtensionsConfig points at the optional extensions file.
type ExtensionsConfig struct {
	File string `envconfig:"EXTENSIONS_FILE"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Editor: EditorConfig{
			FocusPosition: "end",
			BundleURL:     "/static/editor.js",
		},
		Sandbox: SandboxConfig{
			Timeout: 5 * time.Second,
			Console: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
