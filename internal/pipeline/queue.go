package pipeline

import (
	"context"
	"sync"
	"time"
)

// Queue is an unbounded FIFO. Any number of goroutines may Push; a single
// consumer Pops.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends v. It never blocks.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop removes the oldest item. It waits up to poll for one to arrive and
// reports false if none did or ctx ended first.
func (q *Queue[T]) Pop(ctx context.Context, poll time.Duration) (T, bool) {
	timer := time.NewTimer(poll)
	defer timer.Stop()

	for {
		if v, ok := q.tryPop(); ok {
			return v, true
		}
		select {
		case <-q.signal:
		case <-timer.C:
			return q.tryPop()
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

func (q *Queue[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
