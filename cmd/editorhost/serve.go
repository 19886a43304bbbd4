package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/richbridge/internal/infrastructure/server"
)

var (
	servePort string
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editor page, WebSocket bridge and editor API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}

		logger := newLogger(cfg)
		srv, err := server.NewServer(cfg, server.WithLogger(logger))
		if err != nil {
			logger.Error("Failed to create server", zap.Error(err))
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8000", "server port (overrides PORT)")
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "bind address (overrides HOST)")
	rootCmd.AddCommand(serveCmd)
}
