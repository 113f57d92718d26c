package queue

import (
	"context"
	"time"
)

// DefaultCapacity is the number of values the shared queue holds.
const DefaultCapacity = 5

// Queue is a fixed-capacity FIFO of integers.
type Queue struct {
	items chan int
}

// New creates a Queue.
func New(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Queue{items: make(chan int, capacity)}, nil
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// Len returns the number of buffered values.
func (q *Queue) Len() int {
	return len(q.items)
}

// TrySend enqueues a value without blocking.
// It returns ErrFull and drops the value if the queue is at capacity.
func (q *Queue) TrySend(value int) error {
	select {
	case q.items <- value:
		return nil
	default:
		return ErrFull
	}
}

// Receive dequeues the oldest value, waiting up to timeout for one to arrive.
// A non-positive timeout polls.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (int, error) {
	select {
	case value := <-q.items:
		return value, nil
	default:
	}
	if timeout <= 0 {
		return 0, ErrTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case value := <-q.items:
		return value, nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
