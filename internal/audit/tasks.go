package audit

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue audit tasks are enqueued on.
	QueueDefault = "default"
	// TaskTypeRecord is the task type for persisting one audit event.
	TaskTypeRecord = "audit:record"
)

// RecordPayload is the wire form of an audit event.
type RecordPayload struct {
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	Entity     string            `json:"entity"`
	EntityKey  string            `json:"entity_key"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewRecordTask constructs an Asynq task carrying the event.
func NewRecordTask(payload RecordPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}
