package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"
	"github.com/pysugar/tekton-studio/internal/server"
	"github.com/pysugar/tekton-studio/internal/version"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := server.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           app.Handler,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				// n8n can take up to a minute to answer a forwarded request.
				WriteTimeout: 90 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			m := graceful.NewManager()
			m.AddRunningJob(func(ctx context.Context) error {
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						slog.Error("server failed", "error", err)
						os.Exit(1)
					}
				}()
				<-ctx.Done()
				return nil
			})
			// Jobs run concurrently, so the drain and the close share one job.
			m.AddShutdownJob(func() error {
				slog.Info("shutting down server")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				shutdownErr := srv.Shutdown(ctx)
				if shutdownErr != nil {
					slog.Error("server forced to shutdown", "error", shutdownErr)
				}
				if err := app.Close(); err != nil {
					slog.Error("failed to release resources", "error", err)
					return errors.Join(shutdownErr, err)
				}
				return shutdownErr
			})

			slog.Info("Tekton Studio starting",
				"version", version.Version,
				"addr", cfg.Addr(),
				"app_url", cfg.App.URL,
				"database", cfg.Database.Driver)

			<-m.Done()
			return nil
		},
	}
}
