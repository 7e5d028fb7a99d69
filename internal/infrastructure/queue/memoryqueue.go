package queue

import (
	"context"
	"errors"
	"sync"

	"classnotex/internal/domain/dispatch"
)

// MemoryQueue is an in-process dispatch.TaskQueue for tests and single-node
// development. FailNext can be armed to simulate an unreachable substrate.
type MemoryQueue struct {
	mu       sync.Mutex
	tasks    []dispatch.Task
	failNext int
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Push appends the task, or fails if a failure was armed.
func (q *MemoryQueue) Push(_ context.Context, task dispatch.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failNext > 0 {
		q.failNext--
		return errors.New("task queue unavailable")
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// FailNext arms the next n pushes to fail.
func (q *MemoryQueue) FailNext(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failNext = n
}

// Tasks returns a copy of the queued tasks.
func (q *MemoryQueue) Tasks() []dispatch.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]dispatch.Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// Len returns the number of queued tasks.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
