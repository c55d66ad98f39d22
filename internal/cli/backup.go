package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create a timestamped backup of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			path, err := app.db.Backup(ctx, app.cfg.BackupDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", path)
			return nil
		},
	}
}

func newRestoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the database with a backup copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			if _, err := app.requireAdmin(ctx, cmd); err != nil {
				return err
			}
			if err := app.db.Restore(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database restored from %s\n", args[0])
			return nil
		},
	}
}
