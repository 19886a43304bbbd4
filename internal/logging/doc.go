// Package logging builds the zap loggers used across the bridge.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Both write to stderr by default; the headless CLI prints editor state on
// stdout.
//
// Sandbox console output is forwarded to a logger named "sandbox" at the
// level ConsoleLevel picks for the console method.
//
// Example Usage:
//
//	logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	if err != nil {
//		return err
//	}
//	logger.Info("Editor ready", zap.String("editor", id.String()))
package logging
