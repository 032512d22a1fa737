// Package memory provides the bounded in-process queue that carries
// detached sweep tasks to workers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/jobscout/internal/jobs"
)

// ErrClosed is returned once the queue has been shut down.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch        chan jobs.SweepTask
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue constructs a queue holding at most capacity pending tasks.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch:   make(chan jobs.SweepTask, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue adds a task, blocking while the queue is full until ctx ends.
func (q *Queue) Enqueue(ctx context.Context, task jobs.SweepTask) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.done:
		return ErrClosed
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (jobs.SweepTask, error) {
	select {
	case <-ctx.Done():
		return jobs.SweepTask{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.done:
		return jobs.SweepTask{}, ErrClosed
	case task := <-q.ch:
		return task, nil
	}
}

// Len reports the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue. Pending tasks are dropped. Safe to call twice.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
