package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/api"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiCfg := api.Config{
				Port:           a.cfg.API.Port,
				AllowedOrigins: a.cfg.API.AllowedOrigins,
			}
			if cmd.Flags().Changed("port") {
				apiCfg.Port = port
			}
			return a.runServe(cmd.Context(), apiCfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")

	return cmd
}

// runServe runs the API server until SIGINT or SIGTERM.
func (a *app) runServe(ctx context.Context, apiCfg api.Config) error {
	deps, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	logger := a.logger.With("system", "api")
	server := api.NewServer(apiCfg, deps.store, deps.service, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
