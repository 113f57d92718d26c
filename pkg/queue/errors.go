package queue

import "errors"

var (
	// ErrFull indicates the queue is at capacity and the value was dropped.
	ErrFull = errors.New("queue full")
	// ErrTimeout indicates no value arrived within the receive timeout.
	ErrTimeout = errors.New("receive timeout")
	// ErrInvalidCapacity is returned when creating a queue without room.
	ErrInvalidCapacity = errors.New("invalid queue capacity")
)
