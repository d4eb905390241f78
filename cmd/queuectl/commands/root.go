// Package commands implements the queuectl command line.
package commands

import (
	"github.com/spf13/cobra"
)

const cliExecutable = "queuectl"

// NewCommand constructs the top-level queuectl command. Configuration and the
// logger are loaded before any subcommand runs; stores and brokers are opened
// on demand by the subcommands that need them.
func NewCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "queuectl is a durable background job queue for shell commands",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Configuration file path (default $QUEUECTL_CONFIG_PATH or configs/queuectl/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(newEnqueueCommand(a))
	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newShowCommand(a))
	cmd.AddCommand(newStatusCommand(a))
	cmd.AddCommand(newWorkerCommand(a))
	cmd.AddCommand(newDLQCommand(a))
	cmd.AddCommand(newConfigCommand(a))
	cmd.AddCommand(newServeCommand(a))
	cmd.AddCommand(newEventsCommand(a))

	return cmd
}
