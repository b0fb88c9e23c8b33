package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-tracker/internal/dto"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON snapshot into the database",
		Long: `Load users, projects, memberships, tasks and settings from a JSON snapshot.

Snapshot IDs only link records inside the file; the database assigns new ones.
The whole file is written in one transaction, so a failing record leaves the
database unchanged.

Example:
  tracker import seed.json --as root`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer func() { _ = f.Close() }()

			snap, err := dto.DecodeSnapshot(f)
			if err != nil {
				return err
			}

			return run(cmd, opts, func(ctx context.Context, a *app) error {
				actor, err := a.actor(ctx, as)
				if err != nil {
					return err
				}
				result, err := a.svc.Import.Import(ctx, actor, snap)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d users, %d projects, %d members, %d tasks, %d settings\n",
					result.Users, result.Projects, result.Members, result.Tasks, result.Settings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "login ID of the system admin performing the import")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
