package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/mq/queue"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/mq/worker"
	logging "github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		pool := worker.NewPool(3, q, worker.WithLogger(logging.Nop()))
		ctx := context.Background()

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When tasks are submitted and the queue is closed", func() {
			var ran atomic.Int32
			var active, peak atomic.Int32
			pool.Start(ctx)
			for range 20 {
				err := q.EnqueueWait(ctx, queue.Task{Name: "t", Run: func(context.Context) error {
					n := active.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					active.Add(-1)
					ran.Add(1)
					return nil
				}})
				convey.So(err, convey.ShouldBeNil)
			}
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then every task runs with bounded concurrency", func() {
				convey.So(ran.Load(), convey.ShouldEqual, 20)
				convey.So(peak.Load(), convey.ShouldBeLessThanOrEqualTo, 3)
			})
		})

		convey.Convey("When tasks fail or panic", func() {
			var ran atomic.Int32
			pool.Start(ctx)
			_ = q.Enqueue(ctx, queue.Task{Name: "fails", Run: func(context.Context) error { return errors.New("boom") }})
			_ = q.Enqueue(ctx, queue.Task{Name: "panics", Run: func(context.Context) error { panic("bad task") }})
			_ = q.Enqueue(ctx, queue.Task{Name: "nil body"})
			_ = q.Enqueue(ctx, queue.Task{Name: "ok", Run: func(context.Context) error { ran.Add(1); return nil }})
			_ = q.Close()
			pool.Wait()

			convey.Convey("Then the pool keeps serving later tasks", func() {
				convey.So(ran.Load(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a pool whose context is cancelled", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		pool := worker.NewPool(1, q, worker.WithLogger(logging.Nop()))
		ctx, cancel := context.WithCancel(context.Background())

		started := make(chan struct{})
		var once sync.Once
		var ran, sawCancel atomic.Int32
		for range 10 {
			_ = q.Enqueue(ctx, queue.Task{Name: "slow", Run: func(ctx context.Context) error {
				ran.Add(1)
				once.Do(func() { close(started) })
				<-ctx.Done()
				sawCancel.Add(1)
				return ctx.Err()
			}})
		}
		pool.Start(ctx)
		<-started
		cancel()
		pool.Wait()

		convey.Convey("Then the in-flight task drains and no new tasks start", func() {
			convey.So(ran.Load(), convey.ShouldEqual, 1)
			convey.So(sawCancel.Load(), convey.ShouldEqual, 1)
			convey.So(q.Len(context.Background()), convey.ShouldBeGreaterThanOrEqualTo, 8)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)
	q := queue.NewInMemoryQueue()
	w := worker.NewInMemoryWorker(q, worker.WithName("solo"), worker.WithLogger(logging.Nop()))
	go w.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
