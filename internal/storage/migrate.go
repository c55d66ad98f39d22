package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/ais-uchet/aisuchet/internal/logging"
)

// Migration is a versioned, one-time schema or data change. Statements run in
// literal order inside one transaction together with the ledger insert, so a
// version is either fully applied or not applied at all.
type Migration struct {
	Version    int64
	Name       string
	Statements []string
}

// Migrator tracks applied schema versions in the migrations ledger table and
// applies pending ones in ascending version order. There are no rollback
// migrations: the only transition is not-applied -> applied.
type Migrator struct {
	m          *Manager
	log        logging.Logger
	migrations []Migration
}

// NewMigrator returns a Migrator over m. Without explicit migrations it uses
// the built-in application set.
func NewMigrator(m *Manager, log logging.Logger, migrations ...Migration) *Migrator {
	if len(migrations) == 0 {
		migrations = builtinMigrations()
	}
	return &Migrator{m: m, log: log, migrations: migrations}
}

func (g *Migrator) ensureLedger(ctx context.Context) error {
	_, err := g.m.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER UNIQUE NOT NULL,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("storage: create migrations ledger: %w", err)
	}
	return nil
}

// Applied reads the ledger and returns the set of applied version numbers.
func (g *Migrator) Applied(ctx context.Context) (map[int64]bool, error) {
	rows, err := g.m.QueryContext(ctx, `SELECT version FROM migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("storage: read migrations ledger: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// Apply runs all of mig's statements plus the ledger insert in one
// transaction. On any failure the whole migration rolls back, leaving no
// partial schema changes and no ledger row, so it can be retried identically.
func (g *Migrator) Apply(ctx context.Context, mig Migration) error {
	err := g.m.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		for _, stmt := range mig.Statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d %q: %w", mig.Version, mig.Name, err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO migrations (version, name) VALUES (?, ?)`, mig.Version, mig.Name)
		return err
	})
	if err != nil {
		g.log.Error(ctx, "migration failed", "version", mig.Version, "name", mig.Name, "error", err)
		return err
	}
	g.log.Info(ctx, "migration applied", "version", mig.Version, "name", mig.Name)
	return nil
}

// RunAll applies every version not yet in the ledger, strictly ascending.
// Idempotent: safe to invoke on every application startup.
func (g *Migrator) RunAll(ctx context.Context) error {
	if err := g.ensureLedger(ctx); err != nil {
		return err
	}
	applied, err := g.Applied(ctx)
	if err != nil {
		return err
	}

	list := make([]Migration, len(g.migrations))
	copy(list, g.migrations)
	sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })

	for _, mig := range list {
		if applied[mig.Version] {
			continue
		}
		if err := g.Apply(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}
