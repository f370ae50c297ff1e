package shared

// PrincipalStatus is the lifecycle state of an account.
type PrincipalStatus string

// Account lifecycle states. Only active principals hold affirmative access.
const (
	StatusActive   PrincipalStatus = "active"
	StatusInactive PrincipalStatus = "inactive"
	StatusLocked   PrincipalStatus = "locked"
	StatusDisabled PrincipalStatus = "disabled"
	StatusDeleted  PrincipalStatus = "deleted"
)

// Valid reports whether s is a known lifecycle state.
func (s PrincipalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusLocked, StatusDisabled, StatusDeleted:
		return true
	}
	return false
}

// Principal is the authenticated subject an access decision is made for.
// It is produced by the identity middleware and treated as trusted input
// everywhere downstream.
type Principal struct {
	GUID      string
	Username  string
	Status    PrincipalStatus
	Superuser bool
}

// Active reports whether the principal may hold affirmative access.
func (p Principal) Active() bool {
	return p.Status == StatusActive
}
