package fulfillment

import (
	"context"
	"sync"

	"github.com/yawasante/databundles-backend/pkg/logger"
)

// Task is one unit of supplier work handed to the dispatcher. The context
// passed in is detached from the originating request so an HTTP response
// never waits on supplier latency.
type Task func(ctx context.Context)

// Dispatcher decouples payment confirmation from supplier placement.
// Submit returns a channel closed when the task has finished, which lets
// tests and shutdown paths wait without the caller's request doing so.
type Dispatcher interface {
	Submit(task Task) <-chan struct{}
	Close()
}

type queuedTask struct {
	task Task
	done chan struct{}
}

// WorkerDispatcher runs tasks on a fixed worker pool over a bounded queue.
// Submit blocks when the queue is full; backpressure is preferable to
// unbounded goroutine growth during a bulk confirmation burst.
type WorkerDispatcher struct {
	queue   chan queuedTask
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	closeMu sync.Mutex
	closed  bool
}

// NewWorkerDispatcher starts the worker pool.
func NewWorkerDispatcher(workers, queueLen int, logg *logger.Logger) *WorkerDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueLen <= 0 {
		queueLen = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &WorkerDispatcher{
		queue:  make(chan queuedTask, queueLen),
		cancel: cancel,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer d.wg.Done()
			for item := range d.queue {
				d.run(ctx, item, logg)
			}
		}()
	}
	return d
}

func (d *WorkerDispatcher) run(ctx context.Context, item queuedTask, logg *logger.Logger) {
	defer close(item.done)
	defer func() {
		if rec := recover(); rec != nil && logg != nil {
			logg.Warn(ctx, "dispatched task panicked")
		}
	}()
	item.task(ctx)
}

// Submit enqueues a task and returns its completion channel.
func (d *WorkerDispatcher) Submit(task Task) <-chan struct{} {
	done := make(chan struct{})
	d.queue <- queuedTask{task: task, done: done}
	return done
}

// Close drains the queue, waits for in-flight tasks, and stops the workers.
func (d *WorkerDispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.closeMu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// SyncDispatcher runs each task inline. It keeps orchestration code on the
// same Submit path in tests while removing the scheduling nondeterminism.
type SyncDispatcher struct{}

// Submit runs the task before returning an already-closed channel.
func (SyncDispatcher) Submit(task Task) <-chan struct{} {
	done := make(chan struct{})
	task(context.Background())
	close(done)
	return done
}

// Close is a no-op.
func (SyncDispatcher) Close() {}
