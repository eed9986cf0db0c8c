// Package worker runs queued tasks on a fixed set of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/mq/queue"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Worker executes tasks until its queue closes or its context ends.
type Worker interface {
	// Run starts the worker loop.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish its current task and stop.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName labels the worker in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger overrides the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run starts the worker loop. A cancelled context stops the worker from
// taking new tasks; the task in flight sees the cancellation and drains.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			w.process(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
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

func (w *InMemoryWorker) process(ctx context.Context, task queue.Task) {
	metrics.AddPoolActiveWorkers(1)
	defer metrics.AddPoolActiveWorkers(-1)

	start := time.Now()
	err := run(ctx, task)
	metrics.RecordPoolTask(time.Since(start), err != nil)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "task_error")
		w.logger.Debug(ctx, "task failed", logger.String("task", task.Name), logger.Error(err))
	}
}

// run executes the task, converting a panic into an error so one bad task
// cannot take the pool down.
func run(ctx context.Context, task queue.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	if task.Run == nil {
		return fmt.Errorf("task %s has no body", task.Name)
	}
	return task.Run(ctx)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. workerCount < 1 uses NumCPU.
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := range workerCount {
		pool.workers[i] = NewInMemoryWorker(q, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	probe := &InMemoryWorker{}
	for _, opt := range opts {
		opt(probe)
	}
	pool.logger = probe.logger
	if pool.logger == nil {
		pool.logger = logger.Get().Named("worker-pool")
	}
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
}

// Wait blocks until every worker has stopped, either because the queue was
// closed and drained or because the context passed to Start ended.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown closes the queue, if it can be closed, and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
}
