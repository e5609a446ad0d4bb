// Package upload implements the single-consumer GPU upload handoff
// queue drained once per frame by the render thread.
package upload

import (
	"sync"
	"time"
)

// Task is a nullary unit of GPU work. Tasks must tolerate a cancelled
// descriptor: implementations typically resolve a scenestore.Ref inside
// the task and return immediately if it has expired.
type Task func()

// Queue is a FIFO queue of pending upload tasks. Producers (loader
// workers) call Push from any goroutine; the render thread calls Drain
// once per frame from the thread that owns the GPU context.
type Queue struct {
	mu    sync.Mutex
	tasks []Task
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends task to the back of the queue.
func (q *Queue) Push(task Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Drain executes every task currently queued, in FIFO order, and
// returns how many ran. It never blocks: if the queue is empty, it
// returns immediately. Tasks queued by a concurrent Push while Drain is
// executing are picked up on the next Drain, not this one.
func (q *Queue) Drain() int {
	q.mu.Lock()
	pending := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, t := range pending {
		t()
	}
	return len(pending)
}

// Len reports the number of tasks currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// DrainUntilEmpty repeatedly drains the queue until it is empty or
// timeout elapses, to give in-flight loader workers a bounded chance to
// finish enqueueing their last upload tasks during shutdown. It returns
// the number of tasks executed and the number still queued when it gave
// up (0 if it drained to empty before the deadline).
func (q *Queue) DrainUntilEmpty(timeout time.Duration) (executed, remaining int) {
	deadline := time.Now().Add(timeout)
	for {
		executed += q.Drain()
		if q.Len() == 0 {
			return executed, 0
		}
		if time.Now().After(deadline) {
			return executed, q.Len()
		}
		time.Sleep(5 * time.Millisecond)
	}
}
