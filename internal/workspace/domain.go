// Package workspace manages the tenant-like scopes that workspace role
// grants attach to.
package workspace

import "time"

// Status is the lifecycle state of a workspace.
type Status string

// Workspace lifecycle states.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known workspace status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Workspace is a named scope users join with a workspace role.
type Workspace struct {
	ID          string
	Name        string
	Code        string
	Description string
	Status      Status
	OwnerGUID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is one user's grant inside a workspace.
type Member struct {
	UserGUID string
	Username string
	RoleID   int64
	RoleName string
	Active   bool
}

// Filter narrows workspace listings.
type Filter struct {
	Status Status
	Page   int
	Size   int
}
