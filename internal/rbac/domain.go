// Package rbac implements the authorization resolution engine: the grant
// store of role/permission/group relations, the resolver that computes
// access decisions from it, and the assignment manager that mutates it.
package rbac

import (
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wardenhq/warden/internal/shared"
)

// RoleStatus is the lifecycle state of a role.
type RoleStatus string

// Role lifecycle states.
const (
	RoleStatusActive   RoleStatus = "active"
	RoleStatusInactive RoleStatus = "inactive"
)

// Valid reports whether s is a known role status.
func (s RoleStatus) Valid() bool {
	return s == RoleStatusActive || s == RoleStatusInactive
}

// RoleKind classifies how a role is managed and where it applies.
type RoleKind string

// Role kinds. Workspace roles are only granted through workspace membership.
const (
	RoleKindSystem    RoleKind = "system"
	RoleKindCustom    RoleKind = "custom"
	RoleKindTemporary RoleKind = "temporary"
	RoleKindWorkspace RoleKind = "workspace"
)

// Valid reports whether k is a known role kind.
func (k RoleKind) Valid() bool {
	switch k {
	case RoleKindSystem, RoleKindCustom, RoleKindTemporary, RoleKindWorkspace:
		return true
	}
	return false
}

// PermissionStatus is the lifecycle state of a permission.
type PermissionStatus string

// Permission lifecycle states. Disabled permissions never match a resolution.
const (
	PermissionStatusActive   PermissionStatus = "active"
	PermissionStatusDisabled PermissionStatus = "disabled"
)

// Valid reports whether s is a known permission status.
func (s PermissionStatus) Valid() bool {
	return s == PermissionStatusActive || s == PermissionStatusDisabled
}

// Action is the operation half of a permission. The set is closed so that a
// typo in an action name fails validation instead of silently never matching.
type Action string

// Known actions.
const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionList    Action = "list"
	ActionExport  Action = "export"
	ActionImport  Action = "import"
	ActionApprove Action = "approve"
	ActionView    Action = "view"
	ActionExecute Action = "execute"
	ActionCustom  Action = "custom"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList,
		ActionExport, ActionImport, ActionApprove, ActionView, ActionExecute,
		ActionCustom:
		return true
	}
	return false
}

var lower = cases.Lower(language.Und)

// ParseAction normalises and validates an action name.
func ParseAction(raw string) (Action, error) {
	a := Action(lower.String(raw))
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", shared.ErrValidation, raw)
	}
	return a, nil
}

// Resource is the object half of a permission. The resource vocabulary grows
// with the platform, so it is validated by shape rather than enumerated.
type Resource string

var resourcePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,254}$`)

// ParseResource normalises and validates a resource identifier.
func ParseResource(raw string) (Resource, error) {
	r := Resource(lower.String(raw))
	if !resourcePattern.MatchString(string(r)) {
		return "", fmt.Errorf("%w: invalid resource %q", shared.ErrValidation, raw)
	}
	return r, nil
}

// PermissionCode derives the unique code for a (resource, action) pair.
// Two permissions can therefore never collide on the same pair.
func PermissionCode(resource Resource, action Action) string {
	return string(resource) + ":" + string(action)
}

// Role is a named bundle of grants. Its effective permissions are the union
// of direct grants and group-indirect grants.
type Role struct {
	ID          int64
	Name        string
	Description string
	Status      RoleStatus
	Kind        RoleKind
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is an atomic (resource, action) capability with a unique
// derived code.
type Permission struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Resource    Resource
	Action      Action
	Level       int
	Status      PermissionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PermissionGroup is a reusable named bundle of permissions attachable to
// roles, referenced by code.
type PermissionGroup struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Status      PermissionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceGrant is a workspace-scoped role grant. A user may hold different
// roles in different workspaces, and a grant can be deactivated without
// being deleted.
type WorkspaceGrant struct {
	UserGUID    string
	WorkspaceID string
	RoleID      int64
	Active      bool
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	Status RoleStatus
	Kind   RoleKind
	Page   int
	Size   int
}

// PermissionFilter narrows permission listings.
type PermissionFilter struct {
	Status PermissionStatus
	Action Action
	Level  int
	Page   int
	Size   int
}

// GroupFilter narrows permission group listings.
type GroupFilter struct {
	Status PermissionStatus
	Page   int
	Size   int
}
