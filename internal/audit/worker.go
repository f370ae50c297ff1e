package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/wardenhq/warden/internal/jobs"
)

// Worker consumes audit tasks and persists them.
type Worker struct {
	store   EventStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewWorker builds a Worker. metrics may be nil.
func NewWorker(store EventStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, logger: logger, metrics: metrics}
}

// HandleRecord processes TaskTypeRecord tasks. A malformed payload is dropped
// rather than retried.
func (w *Worker) HandleRecord(ctx context.Context, task *asynq.Task) error {
	tracker := w.metrics.Track("audit_record")

	var payload RecordPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.logger.Error("decode audit payload", slog.Any("error", err))
		tracker.End(err)
		return asynq.SkipRetry
	}

	err := w.store.Insert(ctx, Event{
		Actor:      payload.Actor,
		Action:     payload.Action,
		Entity:     payload.Entity,
		EntityKey:  payload.EntityKey,
		Detail:     payload.Detail,
		OccurredAt: payload.OccurredAt,
	})
	if err != nil {
		w.logger.Error("persist audit event",
			slog.String("action", payload.Action),
			slog.String("entity", payload.Entity),
			slog.Any("error", err))
	}
	return tracker.End(err)
}
