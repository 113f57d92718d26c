package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Cycler performs a single iteration of a task loop.
type Cycler interface {
	Cycle(context.Context) error
}

// CycleFunc is the func form of Cycler.
type CycleFunc func(context.Context) error

// Cycle implements Cycler.
func (f CycleFunc) Cycle(ctx context.Context) error {
	return f(ctx)
}

// Delayer suspends the calling task.
type Delayer interface {
	// Delay blocks for d, or until ctx is done.
	Delay(ctx context.Context, d time.Duration) error
}

// DelayFunc is the func form of Delayer.
type DelayFunc func(context.Context, time.Duration) error

// Delay implements Delayer.
func (f DelayFunc) Delay(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Sleep is the default Delayer backed by a timer.
var Sleep Delayer = DelayFunc(sleep)

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Task priorities. Goroutines are not prioritized, these are kept
// as descriptive metadata of the task set.
const (
	PriorityIdle   int = 0
	PriorityLow    int = 2
	PriorityNormal int = 4
	PriorityHigh   int = 5
)

// DefaultStackSize is the nominal stack size reported for a task.
const DefaultStackSize = 2048

// TaskSpec describes a task to be spawned by a Runner.
type TaskSpec struct {
	TaskName  string
	StackSize int
	Priority  int
	Entry     Runnable
}

// Task creates a TaskSpec with default stack size and normal priority.
func Task(name string, entry Runnable) *TaskSpec {
	return &TaskSpec{
		TaskName:  name,
		StackSize: DefaultStackSize,
		Priority:  PriorityNormal,
		Entry:     entry,
	}
}

// WithStack sets the stack size.
func (s *TaskSpec) WithStack(size int) *TaskSpec {
	s.StackSize = size
	return s
}

// WithPriority sets the priority.
func (s *TaskSpec) WithPriority(priority int) *TaskSpec {
	s.Priority = priority
	return s
}

// Name implements Named.
func (s *TaskSpec) Name() string {
	return s.TaskName
}

// Run implements Runnable.
func (s *TaskSpec) Run(ctx context.Context) error {
	return s.Entry.Run(ctx)
}
