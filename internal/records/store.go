// Package records implements the generic, table-parametrized persistence
// engine. Every mutation goes through one code path that appends an audit
// entry in the same transaction, so no business entity can be changed without
// leaving a trail.
package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// Fields is caller-supplied column data for create/update.
type Fields map[string]any

// Record is one row as returned by read/find.
type Record map[string]any

// errMissingRow is internal flow control: update/delete convert it to a
// (false, nil) result after rolling back.
var errMissingRow = errors.New("records: row does not exist")

// Store is a generic persistence component for one table. Entity-specific
// behavior composes a Store instead of inheriting from it.
//
// Table and primary-key names are trusted, compile-time constants supplied by
// this codebase; they are interpolated into SQL. Order-by columns go through
// the sortable allow-list. All values are bound parameters.
type Store struct {
	db       *storage.Manager
	log      logging.Logger
	table    string
	pk       string
	sortable map[string]bool
	auto     map[string]bool
}

// Option configures a Store.
type Option func(*Store)

// WithPrimaryKey overrides the conventional "id" primary-key column.
func WithPrimaryKey(column string) Option {
	return func(s *Store) { s.pk = column }
}

// WithSortable declares the columns find() may order by.
func WithSortable(columns ...string) Option {
	return func(s *Store) {
		for _, c := range columns {
			s.sortable[c] = true
		}
	}
}

// WithAutoFields restricts which bookkeeping columns the store fills in
// automatically, for tables whose schema lacks some of the conventional four
// (created_at, updated_at, created_by, updated_by).
func WithAutoFields(columns ...string) Option {
	return func(s *Store) {
		s.auto = make(map[string]bool, len(columns))
		for _, c := range columns {
			s.auto[c] = true
		}
	}
}

// NewStore returns a Store over the given table. By default all four
// bookkeeping columns are auto-filled.
func NewStore(db *storage.Manager, log logging.Logger, table string, opts ...Option) *Store {
	s := &Store{
		db:       db,
		log:      log.With("table", table),
		table:    table,
		pk:       "id",
		sortable: make(map[string]bool),
		auto: map[string]bool{
			"created_at": true, "updated_at": true,
			"created_by": true, "updated_by": true,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the table this store persists to.
func (s *Store) Table() string { return s.table }

// timestamp formats time the same way SQLite's CURRENT_TIMESTAMP does, so
// caller-visible values round-trip unmodified.
func timestamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

// Create inserts a new row and appends a CREATE audit entry in the same
// transaction. created_at/updated_at are filled if absent; created_by is
// filled from actor when actor is a known principal (> 0). Returns the
// generated primary key. Constraint violations come back wrapped in
// common.ErrConstraint.
func (s *Store) Create(ctx context.Context, actor int64, fields Fields) (int64, error) {
	data := make(Fields, len(fields)+3)
	for k, v := range fields {
		data[k] = v
	}
	now := timestamp()
	if s.auto["created_at"] {
		if _, ok := data["created_at"]; !ok {
			data["created_at"] = now
		}
	}
	if s.auto["updated_at"] {
		if _, ok := data["updated_at"]; !ok {
			data["updated_at"] = now
		}
	}
	if s.auto["created_by"] && actor > 0 {
		if _, ok := data["created_by"]; !ok {
			data["created_by"] = actor
		}
	}

	cols := sortedColumns(data)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), placeholders(len(cols)))
	args := columnValues(data, cols)

	var id int64
	err := s.db.WithTx(ctx, func(ctx context.Context, tx storage.DBTX) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			s.log.Error(ctx, "create failed", "query", query, "params", args, "error", err)
			return storage.ClassifyErr(err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, actor, ActionCreate, &id, nil, data)
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug(ctx, "record created", "id", id)
	return id, nil
}

// Read returns the row with the given primary key, or (nil, nil) when absent.
func (s *Store) Read(ctx context.Context, id int64) (Record, error) {
	return s.get(ctx, s.db, id)
}

func (s *Store) get(ctx context.Context, q storage.DBTX, id int64) (Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", s.table, s.pk)
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Update overwrites the given columns of an existing row and appends an
// UPDATE audit entry with the previous and new values, all in one
// transaction. A missing row is a reported-but-non-fatal condition: the
// result is (false, nil) and the audit log stays untouched.
func (s *Store) Update(ctx context.Context, actor, id int64, fields Fields) (bool, error) {
	data := make(Fields, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	if s.auto["updated_at"] {
		data["updated_at"] = timestamp()
	}
	if s.auto["updated_by"] && actor > 0 {
		if _, ok := data["updated_by"]; !ok {
			data["updated_by"] = actor
		}
	}
	if len(data) == 0 {
		return false, errors.New("records: no fields to update")
	}

	cols := sortedColumns(data)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		s.table, strings.Join(sets, ", "), s.pk)
	args := append(columnValues(data, cols), id)

	err := s.db.WithTx(ctx, func(ctx context.Context, tx storage.DBTX) error {
		old, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return errMissingRow
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			s.log.Error(ctx, "update failed", "id", id, "query", query, "params", args, "error", err)
			return storage.ClassifyErr(err)
		}
		return s.appendAudit(ctx, tx, actor, ActionUpdate, &id, Fields(old), data)
	})
	if errors.Is(err, errMissingRow) {
		s.log.Warn(ctx, "record not found for update", "id", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Debug(ctx, "record updated", "id", id)
	return true, nil
}

// Delete removes a row and appends a DELETE audit entry carrying the previous
// values. Same miss policy as Update: (false, nil), no audit entry.
func (s *Store) Delete(ctx context.Context, actor, id int64) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.table, s.pk)

	err := s.db.WithTx(ctx, func(ctx context.Context, tx storage.DBTX) error {
		old, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return errMissingRow
		}
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			s.log.Error(ctx, "delete failed", "id", id, "error", err)
			return storage.ClassifyErr(err)
		}
		return s.appendAudit(ctx, tx, actor, ActionDelete, &id, Fields(old), nil)
	})
	if errors.Is(err, errMissingRow) {
		s.log.Warn(ctx, "record not found for delete", "id", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Debug(ctx, "record deleted", "id", id)
	return true, nil
}

func sortedColumns(f Fields) []string {
	cols := make([]string, 0, len(f))
	for c := range f {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func columnValues(f Fields, cols []string) []any {
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = f[c]
	}
	return vals
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
