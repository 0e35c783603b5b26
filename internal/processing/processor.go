// Package processing delivers access records to an audit sink in the
// background so request handlers never wait on the database or the queue.
package processing

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/dharsanguruparan/VaultGate/internal/model"
)

// Sink stores or forwards access records.
type Sink interface {
	Record(ctx context.Context, rec model.AccessRecord) error
}

// recordTimeout bounds a single delivery to the sink.
const recordTimeout = 5 * time.Second

// Dispatcher consumes access records from a buffered channel with a fixed
// pool of workers.
type Dispatcher struct {
	logger  logr.Logger
	sink    Sink
	queue   chan model.AccessRecord
	workers int
	wg      sync.WaitGroup
}

// New builds a Dispatcher with queue capacity tied to worker count.
func New(logger logr.Logger, sink Sink, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		logger:  logger,
		sink:    sink,
		queue:   make(chan model.AccessRecord, workers*64),
		workers: workers,
	}
}

// Start launches worker goroutines. They exit once ctx is cancelled and the
// queue has been drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Submit queues a record without blocking. When the buffer is full the record
// is dropped and logged.
func (d *Dispatcher) Submit(rec model.AccessRecord) bool {
	select {
	case d.queue <- rec:
		return true
	default:
		d.logger.Info("audit queue full, dropping access record", "id", rec.ID, "path", rec.Path)
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case rec := <-d.queue:
			d.deliver(context.Background(), rec)
		}
	}
}

// drain flushes whatever is buffered at shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case rec := <-d.queue:
			d.deliver(context.Background(), rec)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec model.AccessRecord) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := d.sink.Record(ctx, rec); err != nil {
		d.logger.Error(err, "recording access", "id", rec.ID)
	}
}

// LogSink writes access records to the logger. It is the sink used when no
// database or queue is configured.
type LogSink struct {
	Logger logr.Logger
}

func (s LogSink) Record(_ context.Context, rec model.AccessRecord) error {
	kvs := []any{
		"id", rec.ID,
		"outcome", rec.Outcome,
		"path", rec.Path,
		"remote_addr", rec.RemoteAddr,
		"version", rec.Version,
	}
	if rec.Reason != "" {
		kvs = append(kvs, "reason", rec.Reason)
	}
	s.Logger.Info("access", kvs...)
	return nil
}
