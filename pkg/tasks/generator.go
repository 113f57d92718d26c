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

// GeneratorState is the state of the Generator.
type GeneratorState int32

// Generator states
const (
	GeneratorNormal GeneratorState = iota
	GeneratorStalling
)

func (s GeneratorState) String() string {
	switch s {
	case GeneratorNormal:
		return "normal"
	case GeneratorStalling:
		return "stalling"
	default:
		return "unknown"
	}
}

// Generator defaults
const (
	DefaultGeneratorPeriod = time.Second
	DefaultStallTrigger    = 10
	DefaultStallCycles     = 20
)

// Generator produces increasing values at a fixed period. When the next
// value equals Trigger it stalls for StallCycles periods, still feeding
// the watchdog, and resumes past the trigger value.
type Generator struct {
	Out         Sender
	Flag        *Flag
	Watchdog    Feeder
	Log         *console.Logger
	Delayer     fx.Delayer
	Period      time.Duration
	Trigger     int
	StallCycles int

	state     atomic.Int32
	value     atomic.Int64
	stallLeft int
	starve    atomic.Int64
}

// NewGenerator creates a Generator with defaults.
func NewGenerator(out Sender, flag *Flag, log *console.Logger) *Generator {
	return &Generator{
		Out:         out,
		Flag:        flag,
		Log:         log,
		Delayer:     fx.Sleep,
		Period:      DefaultGeneratorPeriod,
		Trigger:     DefaultStallTrigger,
		StallCycles: DefaultStallCycles,
	}
}

// State returns the current state.
func (g *Generator) State() GeneratorState {
	return GeneratorState(g.state.Load())
}

// Next returns the value to be sent in the next normal cycle.
func (g *Generator) Next() int {
	return int(g.value.Load())
}

// Starve suppresses sending for the given number of normal cycles.
// The watchdog is still fed during those cycles.
func (g *Generator) Starve(cycles int) {
	if cycles < 0 {
		cycles = 0
	}
	g.starve.Store(int64(cycles))
	g.Log.Printf(console.ModGeneration, "fault injected: suppressing sends for %d cycles", cycles)
}

// Run implements Runnable.
func (g *Generator) Run(ctx context.Context) error {
	return fx.NewLoop(TaskGenerator, g).Run(ctx)
}

// Cycle implements Cycler.
func (g *Generator) Cycle(ctx context.Context) error {
	if g.State() == GeneratorStalling {
		return g.stallCycle(ctx)
	}

	value := g.Next()
	if value == g.Trigger && g.StallCycles > 0 {
		g.stallLeft = g.StallCycles
		g.state.Store(int32(GeneratorStalling))
		g.Log.Printf(console.ModGeneration, "simulating failure: holding sends for %d cycles", g.StallCycles)
		return nil
	}

	if n := g.starve.Load(); n > 0 {
		if g.starve.Add(-1) == 0 {
			g.Log.Printf(console.ModGeneration, "fault cleared, resuming sends")
		}
		g.Watchdog.Feed()
		return g.Delayer.Delay(ctx, g.Period)
	}

	switch err := g.Out.TrySend(value); {
	case err == nil:
		g.Log.Printf(console.ModGeneration, "value %d sent", value)
	case errors.Is(err, queue.ErrFull):
		g.Log.Printf(console.ModGeneration, "queue full, value %d dropped", value)
	default:
		g.Log.Printf(console.ModGeneration, "value %d dropped: %v", value, err)
	}
	g.value.Add(1)
	g.Flag.Set()
	g.Watchdog.Feed()
	return g.Delayer.Delay(ctx, g.Period)
}

func (g *Generator) stallCycle(ctx context.Context) error {
	g.Watchdog.Feed()
	err := g.Delayer.Delay(ctx, g.Period)
	if g.stallLeft--; g.stallLeft <= 0 {
		// the trigger value is skipped, never sent
		g.value.Add(1)
		g.state.Store(int32(GeneratorNormal))
		g.Log.Printf(console.ModGeneration, "stall over, resuming sends at %d", g.Next())
	}
	return err
}
