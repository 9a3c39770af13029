package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/tui"
	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Exposes the catalog, validation, import/export and layout over a JSON API, with Prometheus metrics on /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd, cli.EnvOptions{Quiet: true, Metrics: true})
			if err != nil {
				return err
			}
			defer env.Close()

			addr := env.Config.HTTP.Addr
			if v, _ := cmd.Flags().GetString("addr"); v != "" {
				addr = v
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpAdapter.NewHandler(env.Workspace),
				ReadHeaderTimeout: 10 * time.Second,
			}

			tui.PrintBanner(cmd.ErrOrStderr())
			logger := env.Logger

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("Starting Lattice server", "addr", srv.Addr, "store", env.Config.Store.Driver)
				serverErrors <- srv.ListenAndServe()
			}()

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case <-sigCtx.Done():
				logger.Info("Start shutdown", "signal", sigCtx.Signal())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				logger.Info("Lattice server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	return cmd
}
