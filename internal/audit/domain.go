// Package audit records grant-change events. Recording is asynchronous and
// best-effort: the engine enqueues events and a worker persists them, so an
// audit outage never blocks an authorization mutation.
package audit

import "time"

// Event is one recorded grant change.
type Event struct {
	ID         int64
	Actor      string
	Action     string
	Entity     string
	EntityKey  string
	Detail     map[string]string
	OccurredAt time.Time
}
