// Package cli wires the application core into a command-line administration
// tool: migrations, backup/restore, user management and audit inspection.
package cli

import (
	"bufio"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ais-uchet/aisuchet/internal/auth"
	"github.com/ais-uchet/aisuchet/internal/buildinfo"
	"github.com/ais-uchet/aisuchet/internal/config"
	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// App carries the shared dependencies of all commands. The store is opened
// lazily by the first command that needs it, so commands like "version" don't
// touch the data directory.
type App struct {
	cfg    *config.Config
	log    logging.Logger
	db     *storage.Manager
	hasher auth.Hasher
	stdin  *bufio.Reader
}

func (a *App) open(ctx context.Context) error {
	if a.db != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, cfg.LogFormat)
	a.hasher = auth.NewBcryptHasher()

	db, err := storage.Open(ctx, cfg.DBPath, a.log)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

// requireAdmin authenticates interactively and checks the admin capability.
// The returned session supplies the acting-principal id for audited
// mutations.
func (a *App) requireAdmin(ctx context.Context, cmd *cobra.Command) (*auth.Session, error) {
	username, err := a.promptLine(cmd, "Username: ")
	if err != nil {
		return nil, err
	}
	password, err := a.promptPassword(cmd, "Password: ")
	if err != nil {
		return nil, err
	}

	authn := auth.NewAuthenticator(a.db, a.hasher, a.log)
	p, err := authn.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	s := auth.NewSession()
	s.SetPrincipal(p)
	if !s.HasPermission(auth.FlagAdmin) {
		return nil, fmt.Errorf("user %s lacks administrative permissions", username)
	}
	return s, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "aisuchet",
		Short:         "Material asset record management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	root.AddCommand(
		newMigrateCmd(app),
		newBackupCmd(app),
		newRestoreCmd(app),
		newUserCmd(app),
		newAuditCmd(app),
		newLoginCmd(app),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and show the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			// Open already ran pending migrations; report the ledger.
			applied, err := storage.NewMigrator(app.db, app.log).Applied(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema versions applied: %d\n", len(applied))
			return nil
		},
	}
}
