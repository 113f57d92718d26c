package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
	"github.com/robotalks/robowdt/pkg/queue"
)

// ErrAllocation indicates a received value could not be prepared for transmission.
var ErrAllocation = errors.New("allocation failure")

// ReceiverState is the state of the Receiver.
type ReceiverState int32

// Receiver states
const (
	ReceiverRunning ReceiverState = iota
	ReceiverHalted
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverRunning:
		return "running"
	case ReceiverHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Receiver defaults
const (
	DefaultReceiveTimeout   = 3 * time.Second
	DefaultReceiveDelay     = 100 * time.Millisecond
	DefaultFailureThreshold = 3
)

// TransmitFunc prepares a received value for transmission.
type TransmitFunc func(value int) error

// Receiver consumes values with a bounded wait and escalates on
// consecutive timeouts. Reaching Threshold halts it for good; it stops
// feeding the watchdog so the watchdog restarts the system.
type Receiver struct {
	In        Source
	Flag      *Flag
	Watchdog  Feeder
	Log       *console.Logger
	Delayer   fx.Delayer
	Timeout   time.Duration
	Delay     time.Duration
	Threshold int
	Transmit  TransmitFunc

	failures atomic.Int32
	state    atomic.Int32
	received atomic.Uint64
}

// NewReceiver creates a Receiver with defaults.
func NewReceiver(in Source, flag *Flag, log *console.Logger) *Receiver {
	return &Receiver{
		In:        in,
		Flag:      flag,
		Log:       log,
		Delayer:   fx.Sleep,
		Timeout:   DefaultReceiveTimeout,
		Delay:     DefaultReceiveDelay,
		Threshold: DefaultFailureThreshold,
	}
}

// State returns the current state.
func (r *Receiver) State() ReceiverState {
	return ReceiverState(r.state.Load())
}

// Failures returns the number of consecutive timeouts.
func (r *Receiver) Failures() int {
	return int(r.failures.Load())
}

// Received returns the number of values received.
func (r *Receiver) Received() uint64 {
	return r.received.Load()
}

// Run implements Runnable.
func (r *Receiver) Run(ctx context.Context) error {
	return fx.NewLoop(TaskReceiver, r).Run(ctx)
}

// Cycle implements Cycler.
func (r *Receiver) Cycle(ctx context.Context) error {
	if r.State() == ReceiverHalted {
		return fx.ErrHalt
	}
	value, err := r.In.Receive(ctx, r.Timeout)
	switch {
	case err == nil:
		r.failures.Store(0)
		r.received.Add(1)
		r.deliver(value)
	case errors.Is(err, queue.ErrTimeout):
		if r.timedOut() {
			return fx.ErrHalt
		}
	default:
		return err
	}
	r.Watchdog.Feed()
	return r.Delayer.Delay(ctx, r.Delay)
}

func (r *Receiver) deliver(value int) {
	if fn := r.Transmit; fn != nil {
		if err := fn(value); err != nil {
			r.Log.Printf(console.ModReception, "value %d not transmitted: %v", value, err)
			return
		}
	}
	r.Log.Printf(console.ModReception, "value %d received and transmitted", value)
	r.Flag.Set()
}

func (r *Receiver) timedOut() bool {
	threshold := r.Threshold
	if threshold < 1 {
		threshold = 1
	}
	n := int(r.failures.Add(1))
	switch {
	case n >= threshold:
		r.state.Store(int32(ReceiverHalted))
		r.Log.Printf(console.ModCritical, "receive failed repeatedly, waiting for watchdog restart (%d/%d)", n, threshold)
		return true
	case n == 1:
		r.Log.Printf(console.ModWarning, "receive timeout (%d/%d)", n, threshold)
	default:
		r.Log.Printf(console.ModRecovery, "receive timeout again, attempting recovery (%d/%d)", n, threshold)
	}
	return false
}
