package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/queuectl/internal/api/handler"
	"github.com/cuongbtq/queuectl/internal/api/router"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		port    int
		workers int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and host a worker pool",
		Long: `Run the HTTP API and host a worker pool. Workers can be started and
stopped at runtime through /api/v1/workers/start and /api/v1/workers/stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			notifier := a.notifier()
			pool := a.newPool(store, notifier)

			svc, err := a.newService(cmd.Context(), pool)
			if err != nil {
				return err
			}

			if a.cfg.App.Environment == "production" {
				gin.SetMode(gin.ReleaseMode)
			}

			r := router.SetupRouter(&handler.Dependencies{
				Logger:  a.logger.WithComponent("api"),
				Service: svc,
				Health:  a.db,
			})

			addr := fmt.Sprintf(":%d", port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      r,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
				IdleTimeout:  a.cfg.Server.IdleTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if workers > 0 {
				if _, err := pool.Start(ctx, workers); err != nil {
					return err
				}
			}

			errChan := make(chan error, 1)
			go func() {
				a.logger.Info("Starting HTTP server",
					slog.String("address", addr),
					slog.Duration("read_timeout", a.cfg.Server.ReadTimeout),
					slog.Duration("write_timeout", a.cfg.Server.WriteTimeout),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				a.logger.Info("Shutting down server...")
			case serveErr = <-errChan:
				a.logger.Error("Server failed",
					slog.Any("error", serveErr),
				)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Server forced to shutdown",
					slog.Any("error", err),
				)
			}

			stopped := pool.Stop()
			a.logger.Info("Server shutdown complete",
				slog.Int("workers_stopped", stopped),
			)
			return serveErr
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (default from config)")
	cmd.Flags().IntVarP(&workers, "workers", "n", 0, "Workers to start immediately")
	return cmd
}
