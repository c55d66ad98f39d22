package auth

import (
	"context"
	"fmt"

	"github.com/ais-uchet/aisuchet/internal/common"
	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/records"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// Users manages principal accounts. It is a thin wrapper composing the
// generic record store, so every mutation here is audited like any other.
// Principals are never hard-deleted: deactivation keeps the audit log's
// references intact.
type Users struct {
	store  *records.Store
	db     *storage.Manager
	hasher Hasher
	log    logging.Logger
}

func NewUsers(db *storage.Manager, hasher Hasher, log logging.Logger) *Users {
	return &Users{
		store: records.NewStore(db, log, "users",
			records.WithSortable("username", "full_name", "created_at"),
			records.WithAutoFields("created_at", "updated_at")),
		db:     db,
		hasher: hasher,
		log:    log,
	}
}

// Store exposes the underlying record store for generic listing by the
// presentation layer.
func (u *Users) Store() *records.Store { return u.store }

// Create adds a new principal. The username must be unique among all
// principals, active or deactivated; the password must pass the strength
// policy.
func (u *Users) Create(ctx context.Context, actor int64, username, password, fullName, position string, roleID int64) (int64, error) {
	taken, err := u.store.Exists(ctx, records.Fields{"username": username})
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, fmt.Errorf("auth: username %q: %w", username, common.ErrAlreadyExists)
	}

	if ok, reason := u.hasher.StrengthCheck(password); !ok {
		return 0, fmt.Errorf("auth: %s: %w", reason, common.ErrWeakPassword)
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return 0, err
	}

	id, err := u.store.Create(ctx, actor, records.Fields{
		"username":      username,
		"password_hash": hash,
		"full_name":     fullName,
		"position":      position,
		"role_id":       roleID,
		"is_active":     1,
	})
	if err != nil {
		return 0, err
	}
	u.log.Info(ctx, "user created", "username", username, "id", id)
	return id, nil
}

// ChangePassword verifies the old password and replaces it with the new one.
// A missing user or a wrong old password yields (false, nil); a weak new
// password is an error so the caller can surface the reason.
func (u *Users) ChangePassword(ctx context.Context, actor, userID int64, oldPassword, newPassword string) (bool, error) {
	rec, err := u.store.Read(ctx, userID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	hash, _ := rec["password_hash"].(string)
	if !u.hasher.Verify(oldPassword, hash) {
		u.log.Warn(ctx, "wrong old password on change", "user_id", userID)
		return false, nil
	}

	if ok, reason := u.hasher.StrengthCheck(newPassword); !ok {
		return false, fmt.Errorf("auth: %s: %w", reason, common.ErrWeakPassword)
	}

	newHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return false, err
	}
	ok, err := u.store.Update(ctx, actor, userID, records.Fields{"password_hash": newHash})
	if ok {
		u.log.Info(ctx, "password changed", "user_id", userID)
	}
	return ok, err
}

// ResetPassword replaces the user's password with a generated temporary one
// and returns the plaintext for out-of-band delivery. A missing user yields
// ("", nil).
func (u *Users) ResetPassword(ctx context.Context, actor, userID int64) (string, error) {
	temp, err := u.hasher.GenerateTemporary()
	if err != nil {
		return "", err
	}
	hash, err := u.hasher.Hash(temp)
	if err != nil {
		return "", err
	}

	ok, err := u.store.Update(ctx, actor, userID, records.Fields{"password_hash": hash})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	u.log.Info(ctx, "password reset", "user_id", userID)
	return temp, nil
}

// Deactivate soft-deletes a principal. Existing audit entries keep pointing
// at the row.
func (u *Users) Deactivate(ctx context.Context, actor, userID int64) (bool, error) {
	return u.store.Update(ctx, actor, userID, records.Fields{"is_active": 0})
}

// Activate re-enables a deactivated principal.
func (u *Users) Activate(ctx context.Context, actor, userID int64) (bool, error) {
	return u.store.Update(ctx, actor, userID, records.Fields{"is_active": 1})
}

// Active lists active principals with their role names, ordered by username.
func (u *Users) Active(ctx context.Context) ([]records.Record, error) {
	rows, err := u.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.full_name, COALESCE(u.position, ''), r.name AS role_name
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.is_active = 1
		ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var id int64
		var username, fullName, position, roleName string
		if err := rows.Scan(&id, &username, &fullName, &position, &roleName); err != nil {
			return nil, err
		}
		out = append(out, records.Record{
			"id": id, "username": username, "full_name": fullName,
			"position": position, "role_name": roleName,
		})
	}
	return out, rows.Err()
}

// FindByUsername returns the principal row for a username, or nil.
func (u *Users) FindByUsername(ctx context.Context, username string) (records.Record, error) {
	recs, err := u.store.Find(ctx, records.Fields{"username": username}, nil)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}
