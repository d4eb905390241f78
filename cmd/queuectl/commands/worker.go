package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuongbtq/queuectl/internal/api/dto"
	"github.com/spf13/cobra"
)

func newWorkerCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run or stop worker loops",
	}

	cmd.AddCommand(newWorkerStartCommand(a))
	cmd.AddCommand(newWorkerStopCommand())
	return cmd
}

func newWorkerStartCommand(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start workers in the foreground; Ctrl+C stops them gracefully",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("count") {
				count = a.cfg.Worker.Count
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			pool := a.newPool(store, a.notifier())

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ids, err := pool.Start(ctx, count)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Started %d worker(s): %s\n", len(ids), strings.Join(ids, ", "))
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop after in-flight jobs finish.")

			<-ctx.Done()

			a.logger.Info("Received signal, stopping workers")
			stopped := pool.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d of %d worker(s)\n", stopped, len(ids))
			if stopped < len(ids) {
				a.logger.Warn("Some workers did not stop within the grace period",
					slog.Int("stopped", stopped),
					slog.Int("started", len(ids)),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of workers to start (default from config)")
	return cmd
}

func newWorkerStopCommand() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the workers of a running \"queuectl serve\" process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			url := strings.TrimRight(server, "/") + "/api/v1/workers/stop"
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
			if err != nil {
				return err
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				var e dto.ErrorResponse
				_ = json.NewDecoder(resp.Body).Decode(&e)
				return fmt.Errorf("server returned %s: %s", resp.Status, e.Error)
			}

			var out dto.StopWorkersResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Stopped %d worker(s)\n", out.Stopped)
			return err
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Base URL of the queuectl server")
	// the server's Stop can take the full grace period for each worker
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the server to confirm")
	return cmd
}
