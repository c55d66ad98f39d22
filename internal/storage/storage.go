// Package storage owns the embedded SQLite store: the connection pool and its
// pragmas, scoped transactions, schema migrations and physical backup/restore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ais-uchet/aisuchet/internal/common"
	"github.com/ais-uchet/aisuchet/internal/logging"

	_ "modernc.org/sqlite"
)

// DBTX is the subset of database/sql used by the record store and the
// migration runner. *sql.DB, *sql.Tx and *Manager all satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Manager owns the connection pool over a single SQLite store file.
//
// Pragmas ride on the DSN, so every pooled connection is configured once at
// checkout: foreign keys on, WAL journaling, bounded page cache, in-memory
// temp storage. Writers serialize through the engine's own locking; readers
// proceed concurrently under WAL. Restore is not coordinated with concurrent
// holders of in-flight transactions and must be serialized by the caller.
type Manager struct {
	path string
	log  logging.Logger

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open creates the store's parent directory if needed, opens the pool and
// verifies connectivity, then brings the schema up to date. Safe to call on
// every startup: already-applied migrations are skipped.
func Open(ctx context.Context, path string, log logging.Logger) (*Manager, error) {
	if path == "" {
		return nil, errors.New("storage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info(ctx, "creating new store", "path", path)
	} else {
		log.Info(ctx, "opening existing store", "path", path)
	}

	m := &Manager{path: path, log: log}
	db, err := openPool(path)
	if err != nil {
		return nil, err
	}
	m.db = db

	if err := m.ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	if err := NewMigrator(m, log).RunAll(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func openPool(path string) (*sql.DB, error) {
	// _txlock=immediate makes BeginTx take the write lock up front, so a
	// blocked writer waits on busy_timeout instead of failing mid-transaction.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate"+
		"&_pragma=foreign_keys(1)"+
		"&_pragma=journal_mode(WAL)"+
		"&_pragma=synchronous(NORMAL)"+
		"&_pragma=cache_size(10000)"+
		"&_pragma=temp_store(2)"+
		"&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func (m *Manager) ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Path returns the store file location.
func (m *Manager) Path() string { return m.path }

func (m *Manager) handle() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// ExecContext runs a statement against the pool, logging query and parameters
// on failure before returning the error.
func (m *Manager) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := m.handle().ExecContext(ctx, query, args...)
	if err != nil {
		m.log.Error(ctx, "exec failed", "query", query, "params", args, "error", err)
	}
	return res, err
}

// QueryContext runs a query against the pool with the same logging policy.
func (m *Manager) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := m.handle().QueryContext(ctx, query, args...)
	if err != nil {
		m.log.Error(ctx, "query failed", "query", query, "params", args, "error", err)
	}
	return rows, err
}

// QueryRowContext runs a single-row query. Errors surface at Scan time.
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return m.handle().QueryRowContext(ctx, query, args...)
}

// ExecMany runs one statement repeatedly with each parameter set, inside a
// single transaction. Any failure rolls the whole batch back.
func (m *Manager) ExecMany(ctx context.Context, query string, batches [][]any) error {
	return m.WithTx(ctx, func(ctx context.Context, tx DBTX) error {
		for _, args := range batches {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				m.log.Error(ctx, "batch exec failed", "query", query, "params", args, "error", err)
				return err
			}
		}
		return nil
	})
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := m.WithTx(ctx, func(ctx context.Context, tx storage.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func (m *Manager) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := m.handle().BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			m.log.Error(ctx, "transaction rolled back", "error", err)
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// Close releases the pool. Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// IsConstraint reports whether err comes from a unique/foreign-key/check
// violation. modernc surfaces engine errors as strings.
func IsConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}

// ClassifyErr wraps constraint violations with common.ErrConstraint so callers
// can match them with errors.Is; other errors pass through unchanged.
func ClassifyErr(err error) error {
	if err == nil {
		return nil
	}
	if IsConstraint(err) {
		return fmt.Errorf("%w: %v", common.ErrConstraint, err)
	}
	return err
}
