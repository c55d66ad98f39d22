package records

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ais-uchet/aisuchet/internal/common"
	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// the seeded bootstrap administrator
const adminID int64 = 1

func openTestStore(t *testing.T) *storage.Manager {
	t.Helper()
	m, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func departments(m *storage.Manager) *Store {
	return NewStore(m, logging.Discard(), "departments",
		WithSortable("code", "name", "created_at"),
		WithAutoFields("created_at", "updated_at"))
}

func auditCount(t *testing.T, m *storage.Manager, table string, recordID int64, action Action) int {
	t.Helper()
	var n int
	err := m.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM audit_log WHERE table_name = ? AND record_id = ? AND action = ?`,
		table, recordID, string(action)).Scan(&n)
	require.NoError(t, err)
	return n
}

func totalAudit(t *testing.T, m *storage.Manager) int {
	t.Helper()
	var n int
	require.NoError(t, m.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM audit_log`).Scan(&n))
	return n
}

func TestCreate_RoundTrip(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)
	ctx := context.Background()

	id, err := s.Create(ctx, adminID, Fields{"code": "01", "name": "Headquarters"})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "01", rec["code"])
	assert.Equal(t, "Headquarters", rec["name"])
	assert.NotEmpty(t, rec["created_at"], "created_at must be auto-populated")
	assert.NotEmpty(t, rec["updated_at"], "updated_at must be auto-populated")
}

func TestCreate_EmitsSingleAuditEntry(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)

	id, err := s.Create(context.Background(), adminID, Fields{"code": "02", "name": "Depot"})
	require.NoError(t, err)

	assert.Equal(t, 1, auditCount(t, m, "departments", id, ActionCreate))
}

func TestCreate_WithoutActor_SkipsAudit(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)

	id, err := s.Create(context.Background(), 0, Fields{"code": "03", "name": "Armory"})
	require.NoError(t, err)

	assert.Equal(t, 0, auditCount(t, m, "departments", id, ActionCreate))
	rec, err := s.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, rec["created_by"], "created_by must not be set without an actor")
}

func TestCreate_ActorFillsCreatedBy(t *testing.T) {
	m := openTestStore(t)
	s := NewStore(m, logging.Discard(), "nomenclature", WithSortable("code", "name"))

	id, err := s.Create(context.Background(), adminID,
		Fields{"code": "1234567890", "name": "Test item", "unit": "pcs"})
	require.NoError(t, err)

	rec, err := s.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, adminID, rec["created_by"])
}

func TestCreate_ConstraintViolation(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)
	ctx := context.Background()

	_, err := s.Create(ctx, adminID, Fields{"code": "04", "name": "Supply"})
	require.NoError(t, err)

	before := totalAudit(t, m)
	_, err = s.Create(ctx, adminID, Fields{"code": "04", "name": "Duplicate"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConstraint)
	assert.Equal(t, before, totalAudit(t, m), "failed insert must not leave an audit entry")
}

func TestRead_AbsentIsNotAnError(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)

	rec, err := s.Read(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUpdate_RecordsOldAndNewValues(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)
	ctx := context.Background()

	id, err := s.Create(ctx, adminID, Fields{"code": "05", "name": "Old name"})
	require.NoError(t, err)

	ok, err := s.Update(ctx, adminID, id, Fields{"name": "New name"})
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New name", rec["name"])

	entries, err := NewAuditLog(m, logging.Discard()).ForRecord(ctx, "departments", id)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	upd := entries[1]
	assert.Equal(t, ActionUpdate, upd.Action)
	require.True(t, upd.OldValues.Valid)
	require.True(t, upd.NewValues.Valid)
	assert.Contains(t, upd.OldValues.String, "Old name")
	assert.Contains(t, upd.NewValues.String, "New name")
}

func TestUpdate_MissingRow(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)

	before := totalAudit(t, m)
	ok, err := s.Update(context.Background(), adminID, 424242, Fields{"name": "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, totalAudit(t, m), "audit log must be unchanged on a miss")
}

func TestDelete_EmitsAuditWithOldValues(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)
	ctx := context.Background()

	id, err := s.Create(ctx, adminID, Fields{"code": "06", "name": "Doomed"})
	require.NoError(t, err)

	ok, err := s.Delete(ctx, adminID, id)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := s.Read(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	entries, err := NewAuditLog(m, logging.Discard()).ForRecord(ctx, "departments", id)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	del := entries[1]
	assert.Equal(t, ActionDelete, del.Action)
	assert.True(t, del.OldValues.Valid)
	assert.False(t, del.NewValues.Valid, "new values must be null on delete")
}

func TestDelete_MissingRow(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)

	before := totalAudit(t, m)
	ok, err := s.Delete(context.Background(), adminID, 424242)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, totalAudit(t, m))
}

func TestConcurrentWriters_NoLostWrites(t *testing.T) {
	m := openTestStore(t)
	s := departments(m)
	ctx := context.Background()

	const perWriter = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)

	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Create(ctx, adminID, Fields{
					"code": fmt.Sprintf("w%d-%03d", w, i),
					"name": fmt.Sprintf("Department %d/%d", w, i),
				})
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent create failed: %v", err)
	}

	var rows, audits, distinct int
	require.NoError(t, m.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments`).Scan(&rows))
	require.NoError(t, m.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE table_name = 'departments'`).Scan(&audits))
	require.NoError(t, m.QueryRowContext(ctx, `SELECT COUNT(DISTINCT id) FROM departments`).Scan(&distinct))

	assert.Equal(t, 200, rows)
	assert.Equal(t, 200, audits)
	assert.Equal(t, 200, distinct, "no duplicate primary keys")
}
