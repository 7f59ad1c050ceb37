// Package queue provides the thread-safe FIFO of Waiting tasks that sits
// between admission/retry and the Worker Pool.
package queue

import (
	"sync"

	"ytbatch/internal/task"
)

// Queue is a FIFO of *task.Task in state Waiting. There is no priority
// ordering: retries re-enter at the tail, alongside fresh admissions, so a
// task that keeps failing cannot starve its siblings and cannot jump ahead
// of work that hasn't run yet either.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []*task.Task
	closed bool
}

// New returns an empty Queue ready for use.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends t to the tail. Always accepted; callers (the Orchestrator)
// are responsible for not enqueuing after the batch is Cancelled.
func (q *Queue) Enqueue(t *task.Task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryDequeue removes and returns the head of the queue, or (nil, false) if
// the queue is currently empty. Non-blocking.
func (q *Queue) TryDequeue() (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

// Wait blocks the calling goroutine until an item is enqueued or the queue is
// closed, whichever happens first. A worker calls this after an empty
// TryDequeue to avoid busy polling.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
}

// Close wakes every goroutine blocked in Wait, used on batch cancellation so
// workers waiting on an empty queue notice the shutdown instead of blocking
// forever.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Size reports the number of tasks currently queued.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DrainInto empties the queue, marking every entry Cancelled and passing it
// to onCancelled. Used on batch cancel: every task still only waiting to run
// becomes Cancelled rather than Failed, since it was never attempted.
func (q *Queue) DrainInto(onCancelled func(*task.Task)) {
	q.mu.Lock()
	drained := q.items
	q.items = nil
	q.mu.Unlock()

	for _, t := range drained {
		t.State = task.Cancelled
		onCancelled(t)
	}
}
