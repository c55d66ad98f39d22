package records

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/ais-uchet/aisuchet/internal/common"
)

// FindOptions controls ordering and pagination of Find. OrderBy must name a
// column from the store's sortable allow-list. Offset only applies when Limit
// is set.
type FindOptions struct {
	OrderBy string
	Desc    bool
	Limit   int64
	Offset  int64
}

// Find returns the rows matching every predicate entry (conjunctive).
// Predicate values translate by shape: nil tests IS NULL, a slice tests set
// membership (IN), anything else tests equality. A nil predicate returns all
// rows, bounded by Limit/Offset if given.
func (s *Store) Find(ctx context.Context, pred Fields, opts *FindOptions) ([]Record, error) {
	where, args, err := buildWhere(pred, true)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", s.table)
	b.WriteString(where)

	if opts != nil && opts.OrderBy != "" {
		if !s.sortable[opts.OrderBy] {
			return nil, fmt.Errorf("records: order by %q: %w", opts.OrderBy, common.ErrUnsortableColumn)
		}
		dir := "ASC"
		if opts.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", opts.OrderBy, dir)
	}
	if opts != nil && opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Count returns the number of rows matching the predicate. Only equality and
// IS NULL predicates are supported here; membership tests belong to Find.
func (s *Store) Count(ctx context.Context, pred Fields) (int64, error) {
	where, args, err := buildWhere(pred, false)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.log.Error(ctx, "count failed", "query", query, "params", args, "error", err)
		return 0, err
	}
	return n, nil
}

// Exists reports whether at least one row matches the predicate.
func (s *Store) Exists(ctx context.Context, pred Fields) (bool, error) {
	n, err := s.Count(ctx, pred)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// buildWhere renders the predicate map into a WHERE clause with bound
// parameters. Keys are trusted column names; iteration order is made
// deterministic by sorting them.
func buildWhere(pred Fields, allowMembership bool) (string, []any, error) {
	if len(pred) == 0 {
		return "", nil, nil
	}

	var clauses []string
	var args []any
	for _, col := range sortedColumns(pred) {
		val := pred[col]
		switch {
		case val == nil:
			clauses = append(clauses, col+" IS NULL")
		case isMembership(val):
			if !allowMembership {
				return "", nil, fmt.Errorf("records: membership predicate on %q: %w",
					col, common.ErrInvalidPredicate)
			}
			elems := membershipValues(val)
			if len(elems) == 0 {
				return "", nil, fmt.Errorf("records: empty membership predicate on %q: %w",
					col, common.ErrInvalidPredicate)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, placeholders(len(elems))))
			args = append(args, elems...)
		default:
			clauses = append(clauses, col+" = ?")
			args = append(args, val)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// isMembership reports whether val is a slice or array to be treated as a set
// of alternatives. []byte stays a literal blob value.
func isMembership(val any) bool {
	if _, ok := val.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(val).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func membershipValues(val any) []any {
	if vs, ok := val.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(val)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// scanRecords reads every row into a column-name-to-value map.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
