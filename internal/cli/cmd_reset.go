package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	var as string
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all data except the acting admin",
		Long: `Delete every task, project, membership and setting, and every user except
the admin given with --as. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset deletes all data; pass --yes to confirm")
			}
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				actor, err := a.actor(ctx, as)
				if err != nil {
					return err
				}
				result, err := a.svc.Import.Reset(ctx, actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d users, %d projects, %d tasks, %d settings\n",
					result.Users, result.Projects, result.Tasks, result.Settings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "login ID of the system admin performing the reset")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
