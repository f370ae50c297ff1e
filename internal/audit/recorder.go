package audit

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the slice of the Asynq client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Recorder enqueues grant-change events for asynchronous persistence. It
// satisfies the engine's AuditRecorder contract.
type Recorder struct {
	client Enqueuer
}

// NewRecorder builds a Recorder on top of an Asynq client.
func NewRecorder(client Enqueuer) *Recorder {
	return &Recorder{client: client}
}

// RecordGrantChange enqueues one audit event. The caller treats failures as
// best-effort; this method only reports them.
func (r *Recorder) RecordGrantChange(ctx context.Context, actor, action, entity, entityKey string, detail map[string]string) error {
	task, err := NewRecordTask(RecordPayload{
		Actor:      actor,
		Action:     action,
		Entity:     entity,
		EntityKey:  entityKey,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.EnqueueContext(ctx, task)
	return err
}
