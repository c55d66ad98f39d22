package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ais-uchet/aisuchet/internal/common"
)

// Backup writes a consistent point-in-time copy of the store into dir using
// VACUUM INTO, which snapshots safely while other connections stay active.
// Returns the path of the new backup file.
func (m *Manager) Backup(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create backup dir: %w", err)
	}

	name := "backup_" + time.Now().Format("20060102_150405") + ".db"
	dest := filepath.Join(dir, name)

	if _, err := m.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return "", fmt.Errorf("storage: backup: %w", err)
	}

	m.log.Info(ctx, "backup created", "path", dest)
	return dest, nil
}

// Restore replaces the live store file with the backup at backupPath and
// reopens the pool. In-flight transactions on other goroutines are not
// coordinated with; callers must serialize restore against all other use.
func (m *Manager) Restore(ctx context.Context, backupPath string) error {
	if _, err := os.Stat(backupPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: backup file %s: %w", backupPath, common.ErrNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		if err := m.db.Close(); err != nil {
			return fmt.Errorf("storage: close before restore: %w", err)
		}
	}

	// WAL sidecars belong to the old store state.
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.path + suffix)
	}

	if err := copyFile(backupPath, m.path); err != nil {
		return fmt.Errorf("storage: restore: %w", err)
	}

	db, err := openPool(m.path)
	if err != nil {
		return err
	}
	m.db = db
	m.closed = false

	m.log.Info(ctx, "store restored", "from", backupPath)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
