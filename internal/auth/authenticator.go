package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// Authenticator checks credentials against active principals.
type Authenticator struct {
	db     *storage.Manager
	hasher Hasher
	log    logging.Logger
}

func NewAuthenticator(db *storage.Manager, hasher Hasher, log logging.Logger) *Authenticator {
	return &Authenticator{db: db, hasher: hasher, log: log}
}

// Authenticate looks up an active principal by username, joined with its
// role, and verifies the password. Unknown username, inactive account and
// wrong password all return (nil, nil) uniformly so callers cannot
// distinguish them; only the internal logs differ. The password itself is
// never logged.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	const query = `
		SELECT u.id, u.username, u.password_hash, u.full_name, COALESCE(u.position, ''),
		       u.role_id, r.name,
		       r.can_read, r.can_write, r.can_delete, r.can_approve, r.can_admin
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.username = ? AND u.is_active = 1`

	var p Principal
	var hash string
	err := a.db.QueryRowContext(ctx, query, username).Scan(
		&p.ID, &p.Username, &hash, &p.FullName, &p.Position,
		&p.RoleID, &p.RoleName,
		&p.Permissions.CanRead, &p.Permissions.CanWrite, &p.Permissions.CanDelete,
		&p.Permissions.CanApprove, &p.Permissions.CanAdmin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		a.log.Warn(ctx, "login attempt for unknown or inactive user", "username", username)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup %q: %w", username, err)
	}

	if !a.hasher.Verify(password, hash) {
		a.log.Warn(ctx, "wrong password", "username", username)
		return nil, nil
	}

	a.log.Info(ctx, "user authenticated", "username", username, "role", p.RoleName)
	return &p, nil
}
