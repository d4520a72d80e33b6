package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/tasteid/internal/adapters/mq/queue"
	"github.com/okian/tasteid/internal/domain/model"
	"github.com/okian/tasteid/internal/domain/types"
	"github.com/okian/tasteid/pkg/logger"
	"github.com/okian/tasteid/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// Recompute outcomes reported to metrics and result handlers.
const (
	OutcomeOK               = types.OutcomeOK
	OutcomeInsufficientData = types.OutcomeInsufficientData
	OutcomeFailed           = types.OutcomeFailed
)

// Computer computes and persists one user's TasteID.
type Computer interface {
	Compute(ctx context.Context, userID string) (model.TasteID, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Result describes one finished job.
type Result struct {
	Job      queue.Job
	Outcome  string
	Err      error
	Duration time.Duration
}

// ResultHandler receives every finished job. It may be called concurrently.
type ResultHandler func(ctx context.Context, r Result)

// Worker processes recompute jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	computer Computer
	name     string
	onResult ResultHandler

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, computer Computer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		computer: computer,
		name:     "worker",
		onResult: func(context.Context, Result) {},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker after the job in progress.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	_, err := w.computer.Compute(ctx, job.UserID)
	elapsed := time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(elapsed.Milliseconds()))

	outcome := OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, model.ErrInsufficientData):
		outcome = OutcomeInsufficientData
	default:
		outcome = OutcomeFailed
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "compute_error")
		w.logger.Error(ctx, "recompute failed",
			logger.UserID(job.UserID),
			logger.Error(err),
		)
	}
	metrics.RecordRecomputeJob(outcome)

	w.onResult(ctx, Result{Job: job, Outcome: outcome, Err: err, Duration: elapsed})
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	onResult ResultHandler
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one selects a
// multiple of the CPU count.
func NewPool(workerCount int, q Queue, computer Computer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(
			q,
			computer,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
			WithResultHandler(p.onResult),
		)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerActiveCount(len(p.workers))
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained or the context passed to Start is canceled.
func (p *Pool) Wait(ctx context.Context) error {
	defer metrics.UpdateWorkerActiveCount(0)
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			errs = append(errs, err)
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return errors.Join(errs...)
}
