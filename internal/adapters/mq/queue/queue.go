// Package queue provides the bounded task queue feeding the evaluation workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Task is one unit of work. Name identifies it in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task without blocking. It fails with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, t Task) error

	// EnqueueWait adds a task, blocking while the queue is full.
	EnqueueWait(ctx context.Context, t Task) error

	// Dequeue returns the channel workers receive tasks from. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close stops accepting tasks. Queued tasks can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of pending tasks; values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	metrics.UpdatePoolQueueDepth(0)
	return q
}

// Enqueue adds a task without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	select {
	case q.tasks <- t:
		metrics.UpdatePoolQueueDepth(len(q.tasks))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", t.Name, ctx.Err())
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// EnqueueWait adds a task, blocking while the queue is full.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.tasks <- t:
		metrics.UpdatePoolQueueDepth(len(q.tasks))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", t.Name, ctx.Err())
	}
}

// Dequeue returns the channel workers receive tasks from.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Task {
	return q.tasks
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.tasks)
	metrics.UpdatePoolQueueDepth(size)
	return size
}

// Close stops accepting tasks.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
