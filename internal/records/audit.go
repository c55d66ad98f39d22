package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// Action is the kind of mutation recorded in the audit log.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// AuditEntry is one immutable row of the audit log. OldValues is null for
// CREATE, NewValues is null for DELETE; both are JSON-serialized field maps.
type AuditEntry struct {
	ID        int64
	UserID    int64
	Action    Action
	TableName string
	RecordID  sql.NullInt64
	OldValues sql.NullString
	NewValues sql.NullString
	CreatedAt string
}

// appendAudit writes the audit entry for a mutation inside the mutation's own
// transaction. A failed audit write fails the transaction, rolling the data
// change back with it. Mutations without a known acting principal leave no
// entry, matching the bootstrap/migration paths that run before any login.
func (s *Store) appendAudit(ctx context.Context, tx storage.DBTX, actor int64,
	action Action, recordID *int64, oldValues, newValues Fields) error {

	if actor <= 0 {
		return nil
	}

	oldJSON, err := marshalValues(oldValues)
	if err != nil {
		return fmt.Errorf("records: serialize old values: %w", err)
	}
	newJSON, err := marshalValues(newValues)
	if err != nil {
		return fmt.Errorf("records: serialize new values: %w", err)
	}

	var rid any
	if recordID != nil {
		rid = *recordID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, action, table_name, record_id, old_values, new_values, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		actor, string(action), s.table, rid, oldJSON, newJSON, timestamp())
	if err != nil {
		s.log.Error(ctx, "audit write failed", "action", action, "error", err)
		return fmt.Errorf("records: audit write: %w", err)
	}
	return nil
}

func marshalValues(f Fields) (any, error) {
	if f == nil {
		return nil, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AuditLog reads the append-only audit trail. The application never updates
// or deletes entries; there is deliberately no API for either.
type AuditLog struct {
	db  *storage.Manager
	log logging.Logger
}

// NewAuditLog returns a reader over the audit_log table.
func NewAuditLog(db *storage.Manager, log logging.Logger) *AuditLog {
	return &AuditLog{db: db, log: log}
}

const auditColumns = `id, user_id, action, table_name, record_id, old_values, new_values, created_at`

// ForRecord returns the full mutation history of one record, oldest first.
func (a *AuditLog) ForRecord(ctx context.Context, table string, recordID int64) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE table_name = ? AND record_id = ? ORDER BY id`,
		table, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// Recent returns the latest entries across all tables, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int64) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// ByUser returns the latest entries produced by one principal, newest first.
func (a *AuditLog) ByUser(ctx context.Context, userID, limit int64) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func scanAuditEntries(rows *sql.Rows) ([]AuditEntry, error) {
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var action string
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.TableName,
			&e.RecordID, &e.OldValues, &e.NewValues, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
