package auth

import (
	"context"

	"github.com/ais-uchet/aisuchet/internal/logging"
	"github.com/ais-uchet/aisuchet/internal/records"
	"github.com/ais-uchet/aisuchet/internal/storage"
)

// Roles reads and manages the role table. The default set is seeded by the
// migrations; administrators may add custom roles on top.
type Roles struct {
	store *records.Store
}

func NewRoles(db *storage.Manager, log logging.Logger) *Roles {
	return &Roles{
		store: records.NewStore(db, log, "roles",
			records.WithSortable("name", "created_at"),
			records.WithAutoFields("created_at")),
	}
}

// PermissionsOf returns the capability flags of a role. ok is false when the
// role does not exist.
func (r *Roles) PermissionsOf(ctx context.Context, roleID int64) (Permissions, bool, error) {
	rec, err := r.store.Read(ctx, roleID)
	if err != nil || rec == nil {
		return Permissions{}, false, err
	}
	return Permissions{
		CanRead:    asBool(rec["can_read"]),
		CanWrite:   asBool(rec["can_write"]),
		CanDelete:  asBool(rec["can_delete"]),
		CanApprove: asBool(rec["can_approve"]),
		CanAdmin:   asBool(rec["can_admin"]),
	}, true, nil
}

// All lists every role ordered by name.
func (r *Roles) All(ctx context.Context) ([]records.Record, error) {
	return r.store.Find(ctx, nil, &records.FindOptions{OrderBy: "name"})
}

// Create adds a custom role.
func (r *Roles) Create(ctx context.Context, actor int64, name, description string, p Permissions) (int64, error) {
	return r.store.Create(ctx, actor, records.Fields{
		"name":        name,
		"description": description,
		"can_read":    boolToInt(p.CanRead),
		"can_write":   boolToInt(p.CanWrite),
		"can_delete":  boolToInt(p.CanDelete),
		"can_approve": boolToInt(p.CanApprove),
		"can_admin":   boolToInt(p.CanAdmin),
	})
}

// asBool copes with SQLite's loose typing: boolean columns come back as
// int64 0/1.
func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	default:
		return false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
