// Package main is the entry point of the editor host.
//
// Commands:
//
//	editorhost serve   # editor page, WebSocket bridge, REST API, metrics
//	editorhost run     # one in-process editor driven from stdin
//
// Configuration:
//   - Environment variables (PORT, HOST, EDITOR_*, SANDBOX_*, LOG_*,
//     RATE_LIMIT_*, EXTENSIONS_FILE)
//   - CLI flags override the environment
//
// Usage:
//
//	# Development mode (console logs, debug level)
//	editorhost serve --dev --port 8000
//
//	# Headless session
//	echo '{"method":"toggleBold"}' | editorhost run --content '<p>Hi</p>'
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
