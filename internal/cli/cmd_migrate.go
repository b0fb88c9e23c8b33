package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-tracker/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d ready at %s\n", database.SchemaVersion, a.cfg.DBPath)
				return nil
			})
		},
	}
}
