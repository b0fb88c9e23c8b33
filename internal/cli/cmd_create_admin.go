package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/task-tracker/internal/services"
)

func newCreateAdminCmd(opts *rootOptions) *cobra.Command {
	var input services.CreateUserInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a system admin account",
		Long: `Create a system admin account directly in the database.

Use this once on a fresh database; further accounts can be created by that admin.

Example:
  tracker create-admin --login root --email root@example.com --name Root --password 's3cret-pass'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				user, err := a.svc.Users.Bootstrap(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created system admin %s (id %d)\n", user.LoginID, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&input.LoginID, "login", "", "login ID")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password")
	for _, name := range []string{"login", "email", "name", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
