package utils

import "sync"

// Queue is an unbounded FIFO that many goroutines may push to while a single consumer drains it
// in batches.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// Push appends items to the back of the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Drain removes and returns everything queued so far, oldest first. Items pushed while the caller
// processes the result land in the next batch.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
