package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ais-uchet/aisuchet/internal/logging"
)

func ledgerVersions(t *testing.T, m *Manager) []int64 {
	t.Helper()
	rows, err := m.QueryContext(context.Background(), `SELECT version FROM migrations ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var v int64
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestRunAll_AppliesBuiltinsOnce(t *testing.T) {
	m := openTestStore(t) // Open уже вызывает RunAll
	assert.Equal(t, []int64{1, 2, 3}, ledgerVersions(t, m))
}

func TestRunAll_Idempotent(t *testing.T) {
	m := openTestStore(t)
	ctx := context.Background()

	before := ledgerVersions(t, m)

	g := NewMigrator(m, logging.Discard())
	require.NoError(t, g.RunAll(ctx))
	require.NoError(t, g.RunAll(ctx))

	assert.Equal(t, before, ledgerVersions(t, m), "second run must not change the ledger")
	// seeded data must not be duplicated either
	assert.Equal(t, 4, countAll(t, m, "roles"))
	assert.Equal(t, 1, countAll(t, m, "users"))
}

func TestApply_FailureLeavesNoTrace(t *testing.T) {
	m := openTestStore(t)
	ctx := context.Background()

	bad := Migration{
		Version: 100,
		Name:    "broken",
		Statements: []string{
			`CREATE TABLE half_done (id INTEGER PRIMARY KEY)`,
			`THIS IS NOT SQL`,
		},
	}

	g := NewMigrator(m, logging.Discard(), bad)
	require.Error(t, g.RunAll(ctx))

	applied, err := g.Applied(ctx)
	require.NoError(t, err)
	assert.False(t, applied[100], "failed migration must not be recorded")

	var n int
	err = m.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'half_done'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "partial schema changes must roll back")
}

func TestRunAll_AppliesInAscendingOrder(t *testing.T) {
	m := openTestStore(t)
	ctx := context.Background()

	// versions given out of order; the second depends on the first
	set := []Migration{
		{Version: 201, Name: "add_column", Statements: []string{
			`ALTER TABLE ordered ADD COLUMN v TEXT`,
		}},
		{Version: 200, Name: "create_table", Statements: []string{
			`CREATE TABLE ordered (id INTEGER PRIMARY KEY)`,
		}},
	}

	g := NewMigrator(m, logging.Discard(), set...)
	require.NoError(t, g.RunAll(ctx))

	got := ledgerVersions(t, m)
	assert.Contains(t, got, int64(200))
	assert.Contains(t, got, int64(201))
}

func TestSeededAdmin_Exists(t *testing.T) {
	m := openTestStore(t)

	var username string
	var roleID int64
	err := m.QueryRowContext(context.Background(),
		`SELECT username, role_id FROM users WHERE username = 'admin'`).Scan(&username, &roleID)
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
	assert.Equal(t, int64(1), roleID)
}

func TestNomenclature_GeneratedClassification(t *testing.T) {
	m := openTestStore(t)
	ctx := context.Background()

	_, err := m.ExecContext(ctx,
		`INSERT INTO nomenclature (code, name, unit) VALUES ('1234567890', 'Test item', 'pcs')`)
	require.NoError(t, err)

	var class, group, subgroup, item string
	err = m.QueryRowContext(ctx,
		`SELECT class_code, group_code, subgroup_code, item_number FROM nomenclature WHERE code = '1234567890'`).
		Scan(&class, &group, &subgroup, &item)
	require.NoError(t, err)

	assert.Equal(t, "12", class)
	assert.Equal(t, "345", group)
	assert.Equal(t, "67", subgroup)
	assert.Equal(t, "890", item)
}
