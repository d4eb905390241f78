package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
	"github.com/cuongbtq/queuectl/internal/worker"
	"github.com/spf13/cobra"
)

func newEventsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with job lifecycle events published to RabbitMQ",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print lifecycle events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.RabbitMQ.Enabled {
				return fmt.Errorf("rabbitmq is not enabled in the configuration")
			}

			client, err := a.openRabbit()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			host, _ := os.Hostname()
			tag := fmt.Sprintf("%s-tail-%s-%d", cliExecutable, host, os.Getpid())
			out := cmd.OutOrStdout()

			return worker.ConsumeEvents(ctx, client, tag, a.logger.WithComponent("events"), func(e domain.JobEvent) error {
				_, err := fmt.Fprintf(out, "%s  %-10s  %s  attempts=%d  %s\n",
					e.At.Local().Format(time.DateTime), e.State, e.JobID, e.Attempts, deref(e.ErrorMessage))
				return err
			})
		},
	})

	return cmd
}
