package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ais-uchet/aisuchet/internal/auth"
)

func newUserCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(
		newUserCreateCmd(app),
		newUserListCmd(app),
		newUserResetCmd(app),
		newUserDeactivateCmd(app),
		newUserActivateCmd(app),
	)
	return cmd
}

func newUserCreateCmd(app *App) *cobra.Command {
	var fullName, position string
	var roleID int64

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			session, err := app.requireAdmin(ctx, cmd)
			if err != nil {
				return err
			}
			password, err := app.promptPassword(cmd, "New user password: ")
			if err != nil {
				return err
			}

			users := auth.NewUsers(app.db, app.hasher, app.log)
			id, err := users.Create(ctx, session.UserID, args[0], password, fullName, position, roleID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", args[0], id)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name of the user")
	cmd.Flags().StringVar(&position, "position", "", "job position")
	cmd.Flags().Int64Var(&roleID, "role", 4, "role id (default: viewer)")
	return cmd
}

func newUserListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			users := auth.NewUsers(app.db, app.hasher, app.log)
			active, err := users.Active(ctx)
			if err != nil {
				return err
			}
			for _, u := range active {
				fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\t%v\t%v\n",
					u["id"], u["username"], u["full_name"], u["role_name"])
			}
			return nil
		},
	}
}

func newUserResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Reset a user's password to a generated temporary one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			session, err := app.requireAdmin(ctx, cmd)
			if err != nil {
				return err
			}
			users := auth.NewUsers(app.db, app.hasher, app.log)
			temp, err := users.ResetPassword(ctx, session.UserID, userID)
			if err != nil {
				return err
			}
			if temp == "" {
				return fmt.Errorf("user %d not found", userID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "temporary password: %s\n", temp)
			return nil
		},
	}
}

func newUserDeactivateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Deactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE:  setActiveRunE(app, false),
	}
}

func newUserActivateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <user-id>",
		Short: "Reactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE:  setActiveRunE(app, true),
	}
}

func setActiveRunE(app *App, active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := app.open(ctx); err != nil {
			return err
		}
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		session, err := app.requireAdmin(ctx, cmd)
		if err != nil {
			return err
		}
		users := auth.NewUsers(app.db, app.hasher, app.log)
		var ok bool
		if active {
			ok, err = users.Activate(ctx, session.UserID, userID)
		} else {
			ok, err = users.Deactivate(ctx, session.UserID, userID)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %d not found", userID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %d updated\n", userID)
		return nil
	}
}
