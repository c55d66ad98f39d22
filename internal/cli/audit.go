package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ais-uchet/aisuchet/internal/auth"
	"github.com/ais-uchet/aisuchet/internal/records"
)

func newAuditCmd(app *App) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			entries, err := records.NewAuditLog(app.db, app.log).Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				recordID := "-"
				if e.RecordID.Valid {
					recordID = fmt.Sprintf("%d", e.RecordID.Int64)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tuser=%d\t%s\t%s\t#%s\n",
					e.CreatedAt, e.UserID, e.Action, e.TableName, recordID)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum number of entries")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and show the granted permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			username, err := app.promptLine(cmd, "Username: ")
			if err != nil {
				return err
			}
			password, err := app.promptPassword(cmd, "Password: ")
			if err != nil {
				return err
			}

			authn := auth.NewAuthenticator(app.db, app.hasher, app.log)
			p, err := authn.Authenticate(ctx, username, password)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("invalid username or password")
			}

			s := auth.NewSession()
			s.SetPrincipal(p)
			fmt.Fprintf(cmd.OutOrStdout(), "authenticated as %s (role %s, session %s)\n",
				s.Username, s.RoleName, s.ID)
			for _, f := range []auth.Flag{
				auth.FlagRead, auth.FlagWrite, auth.FlagDelete,
				auth.FlagApprove, auth.FlagAdmin,
			} {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %t\n", f, s.HasPermission(f))
			}
			return nil
		},
	}
}
