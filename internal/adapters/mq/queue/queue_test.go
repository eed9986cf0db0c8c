package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func named(name string) Task {
	return Task{Name: name, Run: func(context.Context) error { return nil }}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, named("task1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	task := <-q.Dequeue(ctx)
	if task.Name != "task1" {
		t.Errorf("expected task1, got %v", task.Name)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	_ = q.Enqueue(ctx, named("a"))
	_ = q.Enqueue(ctx, named("b"))
	if err := q.Enqueue(ctx, named("c")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
}

func TestInMemoryQueue_EnqueueWaitBlocksUntilSpace(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()
	_ = q.Enqueue(ctx, named("a"))

	done := make(chan error, 1)
	go func() { done <- q.EnqueueWait(ctx, named("b")) }()

	select {
	case <-done:
		t.Fatal("EnqueueWait returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}
	<-q.Dequeue(ctx)
	if err := <-done; err != nil {
		t.Errorf("EnqueueWait: %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.EnqueueWait(cctx, named("c")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	_ = q.Enqueue(ctx, named("queued"))

	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Enqueue(ctx, named("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.EnqueueWait(ctx, named("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []string
	for task := range q.Dequeue(ctx) {
		drained = append(drained, task.Name)
	}
	if len(drained) != 1 || drained[0] != "queued" {
		t.Errorf("queued tasks must survive Close, got %v", drained)
	}
}
