package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ais-uchet/aisuchet/internal/common"
	"github.com/ais-uchet/aisuchet/internal/logging"
)

func openTestStore(t *testing.T) *Manager {
	t.Helper()
	m, err := Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func countAll(t *testing.T, m *Manager, table string) int {
	t.Helper()
	var n int
	require.NoError(t, m.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpen_CreatesFileAndSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "store.db")

	m, err := Open(context.Background(), path, logging.Discard())
	require.NoError(t, err)
	defer m.Close()

	assert.FileExists(t, path)

	// миграции должны были создать схему и начальные данные
	assert.Equal(t, 4, countAll(t, m, "roles"))
	assert.Equal(t, 5, countAll(t, m, "categories"))
	assert.Equal(t, 1, countAll(t, m, "users"))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "", logging.Discard())
	require.Error(t, err)
}

func TestExec_ErrorIsReturned(t *testing.T) {
	m := openTestStore(t)
	_, err := m.ExecContext(context.Background(), "INSERT INTO no_such_table (x) VALUES (1)")
	require.Error(t, err)
}

func TestForeignKeys_Enforced(t *testing.T) {
	m := openTestStore(t)
	_, err := m.ExecContext(context.Background(),
		`INSERT INTO users (username, password_hash, full_name, role_id) VALUES ('x', 'h', 'X', 999)`)
	require.Error(t, err)
	assert.True(t, IsConstraint(err))
	assert.ErrorIs(t, ClassifyErr(err), common.ErrConstraint)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	m := openTestStore(t)

	err := m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO departments (code, name) VALUES ('01', 'HQ')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countAll(t, m, "departments"))
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	m := openTestStore(t)

	err := m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO departments (code, name) VALUES ('02', 'Depot')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, countAll(t, m, "departments"), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	m := openTestStore(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		assert.Equal(t, 0, countAll(t, m, "departments"), "must rollback on panic")
	}()

	_ = m.WithTx(context.Background(), func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO departments (code, name) VALUES ('03', 'Armory')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestExecMany_AllOrNothing(t *testing.T) {
	m := openTestStore(t)
	ctx := context.Background()

	err := m.ExecMany(ctx, `INSERT INTO departments (code, name) VALUES (?, ?)`, [][]any{
		{"10", "Supply"},
		{"11", "Transport"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countAll(t, m, "departments"))

	// дубликат кода в середине пакета откатывает весь пакет
	err = m.ExecMany(ctx, `INSERT INTO departments (code, name) VALUES (?, ?)`, [][]any{
		{"12", "Fuel"},
		{"10", "Duplicate"},
	})
	require.Error(t, err)
	assert.Equal(t, 2, countAll(t, m, "departments"))
}

func TestClose_Idempotent(t *testing.T) {
	m := openTestStore(t)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.ExecContext(context.Background(), "SELECT 1")
	require.Error(t, err, "pool is closed")
}
