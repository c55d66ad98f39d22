package auth

import (
	"time"

	"github.com/google/uuid"
)

// Flag names one capability bit of a role.
type Flag string

const (
	FlagRead    Flag = "can_read"
	FlagWrite   Flag = "can_write"
	FlagDelete  Flag = "can_delete"
	FlagApprove Flag = "can_approve"
	FlagAdmin   Flag = "can_admin"
)

// Permissions is a role's capability flags.
type Permissions struct {
	CanRead    bool
	CanWrite   bool
	CanDelete  bool
	CanApprove bool
	CanAdmin   bool
}

// Allows reports whether the flag is granted. Admin implies every other flag.
func (p Permissions) Allows(f Flag) bool {
	if p.CanAdmin {
		return true
	}
	switch f {
	case FlagRead:
		return p.CanRead
	case FlagWrite:
		return p.CanWrite
	case FlagDelete:
		return p.CanDelete
	case FlagApprove:
		return p.CanApprove
	default:
		return false
	}
}

// Principal is an authenticated user account joined with its role.
type Principal struct {
	ID          int64
	Username    string
	FullName    string
	Position    string
	RoleID      int64
	RoleName    string
	Permissions Permissions
}

// Session holds the authenticated principal for the lifetime of a login.
// Permissions are a snapshot taken at login time: editing the role later does
// not affect an active session until the next login.
//
// A Session is an explicit value owned by the coordinating caller and is not
// safe for concurrent use.
type Session struct {
	ID          uuid.UUID
	UserID      int64
	Username    string
	RoleID      int64
	RoleName    string
	Permissions Permissions
	LoginTime   time.Time
}

// NewSession returns an empty (unauthenticated) session.
func NewSession() *Session {
	return &Session{ID: uuid.New()}
}

// SetPrincipal records a successful login.
func (s *Session) SetPrincipal(p *Principal) {
	s.ID = uuid.New()
	s.UserID = p.ID
	s.Username = p.Username
	s.RoleID = p.RoleID
	s.RoleName = p.RoleName
	s.Permissions = p.Permissions
	s.LoginTime = time.Now()
}

// Clear wipes the session on logout.
func (s *Session) Clear() {
	*s = Session{ID: uuid.New()}
}

// IsAuthenticated reports whether a principal is set.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != 0
}

// HasPermission checks the login-time capability snapshot.
func (s *Session) HasPermission(f Flag) bool {
	return s.IsAuthenticated() && s.Permissions.Allows(f)
}
