package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VaultGate/internal/model"
)

const (
	// RecordAccessTask is scheduled for every signed-URL decision.
	RecordAccessTask = "access:record"
)

// NewRecordAccessTask serializes rec into a task payload.
func NewRecordAccessTask(rec model.AccessRecord) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(RecordAccessTask, data), nil
}

// DecodeRecordAccess is the inverse of NewRecordAccessTask.
func DecodeRecordAccess(task *asynq.Task) (model.AccessRecord, error) {
	var rec model.AccessRecord
	if err := json.Unmarshal(task.Payload(), &rec); err != nil {
		return rec, fmt.Errorf("decode payload: %w", err)
	}
	return rec, nil
}

// Enqueuer is the part of *asynq.Client the publisher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher is an audit sink that hands records to the asynq worker.
type Publisher struct {
	client Enqueuer
}

// NewPublisher wraps an asynq client.
func NewPublisher(client Enqueuer) *Publisher {
	return &Publisher{client: client}
}

// Record enqueues rec. A non-empty record ID doubles as the task ID so a
// record is only queued once; records without one get a generated task ID.
func (p *Publisher) Record(ctx context.Context, rec model.AccessRecord) error {
	task, err := NewRecordAccessTask(rec)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(5)}
	if rec.ID != "" {
		opts = append(opts, asynq.TaskID(rec.ID))
	}
	if _, err := p.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue access record: %w", err)
	}
	return nil
}
