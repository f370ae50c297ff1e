// Package identity manages accounts and sessions: who a request is from.
// Authorization of what that account may do lives in the rbac package.
package identity

import (
	"time"

	"github.com/wardenhq/warden/internal/shared"
)

// Account is a stored principal with credentials.
type Account struct {
	GUID         string
	Username     string
	Email        string
	PasswordHash string
	Status       shared.PrincipalStatus
	Superuser    bool
	LastLoginAt  *time.Time
	LastLoginIP  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the account into the trusted request-scoped form.
func (a Account) Principal() shared.Principal {
	return shared.Principal{
		GUID:      a.GUID,
		Username:  a.Username,
		Status:    a.Status,
		Superuser: a.Superuser,
	}
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Status shared.PrincipalStatus
	Page   int
	Size   int
}
