// Package tasks implements the generator, receiver and supervisor tasks.
package tasks

import (
	"context"
	"sync/atomic"
	"time"
)

// Task names, also used as watchdog entry names.
const (
	TaskGenerator  = "generator"
	TaskReceiver   = "receiver"
	TaskSupervisor = "supervisor"
)

// Sender accepts values without blocking.
type Sender interface {
	TrySend(value int) error
}

// Source delivers values with a bounded wait.
type Source interface {
	Receive(ctx context.Context, timeout time.Duration) (int, error)
}

// Feeder is the liveness signal of a task to the watchdog.
type Feeder interface {
	Feed()
}

// Flag is an advisory liveness flag. The owning task sets it after each
// successful cycle and the supervisor takes it once per window.
type Flag struct {
	v atomic.Bool
}

// Set marks a successful cycle.
func (f *Flag) Set() {
	f.v.Store(true)
}

// Take reads and clears the flag.
func (f *Flag) Take() bool {
	return f.v.Swap(false)
}

// Peek reads the flag without clearing it.
func (f *Flag) Peek() bool {
	return f.v.Load()
}
