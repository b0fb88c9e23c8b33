// Package cli implements the tracker operator commands.
package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	metricsFile string
}

// NewRootCmd builds the tracker command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Operate a task tracker database",
		Long: `tracker runs maintenance operations against the task tracker database.

Configuration comes from TRACKER_* environment variables:
  TRACKER_DB_PATH     database file (default data/tracker.db)
  TRACKER_ENV         development, test or production
  TRACKER_LOG_LEVEL   debug, info, warn or error

Quick start:
  tracker migrate
  tracker create-admin --login root --email root@example.com --name Root --password '...'
  tracker import snapshot.json --as root`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.metricsFile, "metrics-file", "",
		"write Prometheus counters to this file when the command finishes")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newCreateAdminCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	return cmd
}

// Execute runs the root command with the process arguments. An interrupt
// cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
