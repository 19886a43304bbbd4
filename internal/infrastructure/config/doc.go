// Package config provides 12-factor configuration management for the editor host.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Editor: autofocus, focus position, initial content, bundle URL
//   - Sandbox: per-task script timeout, console capture
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Extensions: path of the YAML or TOML extensions file
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	ext, err := config.LoadExtensions(cfg.Extensions.File)
//
// Environment Variables:
//   - PORT, HOST
//   - EDITOR_AUTOFOCUS, EDITOR_FOCUS_POSITION, EDITOR_INITIAL_CONTENT, EDITOR_BUNDLE_URL
//   - SANDBOX_TIMEOUT, SANDBOX_CONSOLE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - EXTENSIONS_FILE
package config
