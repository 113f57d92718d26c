package framework

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/golang/glog"
)

// Loop repeats a Cycler until the context is done.
//
// When the Cycler returns ErrHalt the Loop enters its parked state:
// it performs no further cycles and only returns once the context
// is canceled.
type Loop struct {
	Name   string
	Cycler Cycler

	cycles atomic.Uint64
	parked atomic.Bool
}

// NewLoop creates a Loop.
func NewLoop(name string, c Cycler) *Loop {
	return &Loop{Name: name, Cycler: c}
}

// Cycles returns the number of completed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Parked indicates the loop halted and will never cycle again.
func (l *Loop) Parked() bool {
	return l.parked.Load()
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := l.Cycler.Cycle(ctx)
		if errors.Is(err, ErrHalt) {
			l.parked.Store(true)
			glog.V(4).Infof("Loop[%s] parked after %d cycles", l.Name, l.cycles.Load())
			<-ctx.Done()
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		l.cycles.Add(1)
	}
}
