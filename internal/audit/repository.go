package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore persists audit events.
type EventStore interface {
	Insert(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Repository is the Postgres-backed EventStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one event.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_events (actor_guid, action, entity, entity_key, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Actor, event.Action, event.Entity, event.EntityKey, detail, event.OccurredAt)
	return err
}

// Recent returns the newest events, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_guid, action, entity, entity_key, detail, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var detail []byte
		if err := rows.Scan(&event.ID, &event.Actor, &event.Action, &event.Entity, &event.EntityKey, &detail, &event.OccurredAt); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
