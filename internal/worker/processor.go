package worker

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VaultGate/internal/model"
	"github.com/dharsanguruparan/VaultGate/internal/queue"
)

// Store is where the worker writes access records.
type Store interface {
	Record(ctx context.Context, rec model.AccessRecord) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	logger logr.Logger
	store  Store
}

// NewProcessor constructs a worker processor.
func NewProcessor(logger logr.Logger, store Store) *Processor {
	return &Processor{logger: logger, store: store}
}

// Handler registers the access record handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RecordAccessTask, p.handleRecordAccess)
	return mux
}

func (p *Processor) handleRecordAccess(ctx context.Context, task *asynq.Task) error {
	rec, err := queue.DecodeRecordAccess(task)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := p.store.Record(ctx, rec); err != nil {
		p.logger.Error(err, "storing access record", "id", rec.ID)
		return err
	}
	p.logger.V(1).Info("stored access record", "id", rec.ID, "outcome", rec.Outcome)
	return nil
}
