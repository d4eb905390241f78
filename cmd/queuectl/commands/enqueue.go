package commands

import (
	"fmt"

	"github.com/cuongbtq/queuectl/internal/queue"
	"github.com/spf13/cobra"
)

func newEnqueueCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "enqueue <job-json>",
		Short: "Add a job to the queue",
		Long: `Add a job to the queue. The payload is a JSON object:

  {"command": "echo hello", "id": "job1", "max_retries": 3}

Only command is required. max_retries defaults to the configured value.`,
		Example: `  queuectl enqueue '{"id":"job1","command":"sleep 2"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := queue.ParseEnqueueRequest([]byte(args[0]))
			if err != nil {
				return err
			}

			svc, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}

			job, err := svc.Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), job)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s (max_retries=%d)\n", job.ID, job.MaxRetries)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the created job as JSON")
	return cmd
}
