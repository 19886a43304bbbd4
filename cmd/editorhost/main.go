package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/richbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/richbridge/internal/logging"
)

var (
	devMode  bool
	logLevel string
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "editorhost",
	Short: "Host rich-text editors running behind a message bridge",
	Long: `editorhost drives rich-text editors whose document lives in a sandbox.
Editors are composed from bridge extensions, talk to the host over a
JSON message channel and report their state back after every change.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "development logging (console, debug level)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if devMode {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	logger, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return logging.Nop()
	}
	return logger
}
