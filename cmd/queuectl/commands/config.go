package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/cuongbtq/queuectl/internal/queue"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change the durable queue configuration",
		Long: `Read and change the durable queue configuration.

Keys: max-retries (> 0), backoff-base (>= 1), worker-poll-interval (>= 0 seconds).
Underscored key names are accepted too. Changes apply to jobs enqueued and
failures handled after the change.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show every config value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}

			cfg, err := svc.GetConfig(cmd.Context())
			if err != nil {
				return err
			}

			values := queue.ConfigMap(cfg)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, k := range queue.ConfigKeys {
				fmt.Fprintf(tw, "%s\t%d\n", k, values[k])
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}

			v, err := svc.GetConfigValue(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one config value",
		Example: "  queuectl config set max-retries 5",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := queue.ParseConfigValue(args[1])
			if err != nil {
				return err
			}

			svc, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}

			key, err := queue.NormalizeConfigKey(args[0])
			if err != nil {
				return err
			}

			if _, err := svc.SetConfig(cmd.Context(), key, value); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", key, value)
			return err
		},
	})

	return cmd
}
