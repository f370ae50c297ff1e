package shared

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation on a name or code.
	ErrConflict = errors.New("conflict")
	// ErrForbidden indicates the caller lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
