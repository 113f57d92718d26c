// Package system wires the queue, the tasks and the watchdog together
// and restarts the whole task set whenever the watchdog fires.
package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
	"github.com/robotalks/robowdt/pkg/queue"
	"github.com/robotalks/robowdt/pkg/tasks"
	"github.com/robotalks/robowdt/pkg/watchdog"
)

// Task stack sizes, as declared for the firmware tasks.
const (
	GeneratorStack  = 2048
	ReceiverStack   = 2048
	SupervisorStack = 3072
)

// ErrNotBooted is returned when no boot is running.
var ErrNotBooted = errors.New("system not booted")

// Boot is one lifetime of the task set, between two restarts.
type Boot struct {
	Seq        int
	Started    time.Time
	Queue      *queue.Queue
	Watchdog   *watchdog.Watchdog
	Generation *tasks.Flag
	Reception  *tasks.Flag
	Generator  *tasks.Generator
	Receiver   *tasks.Receiver
	Supervisor *tasks.Supervisor
	Tasks      []*fx.TaskSpec
}

// System runs boots until the context is done or MaxBoots is reached.
type System struct {
	Config    *Config
	Log       *console.Logger
	Reporters []tasks.StatusReporter
	Transmit  tasks.TransmitFunc
	// OnBoot is called when a boot has spawned its tasks.
	OnBoot func(*Boot)

	lock     sync.RWMutex
	current  *Boot
	boots    int
	restarts []*watchdog.ExpiredError
}

// NewSystem creates a System from config.
func (c *Config) NewSystem(sink console.Sink) (*System, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}
	return &System{
		Config: c,
		Log:    console.NewLogger(c.OwnerID(), sink),
	}, nil
}

// MustNewSystem creates a System and fails on error.
func (c *Config) MustNewSystem(sink console.Sink) *System {
	s, err := c.NewSystem(sink)
	if err != nil {
		glog.Fatalln(err)
	}
	return s
}

// Current returns the running boot, or nil.
func (s *System) Current() *Boot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.current
}

// Boots returns the number of boots so far.
func (s *System) Boots() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.boots
}

// Restarts returns the watchdog expiries which ended previous boots.
func (s *System) Restarts() []*watchdog.ExpiredError {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]*watchdog.ExpiredError(nil), s.restarts...)
}

// Starve injects a generator fault into the running boot.
func (s *System) Starve(cycles int) error {
	b := s.Current()
	if b == nil {
		return ErrNotBooted
	}
	b.Generator.Starve(cycles)
	return nil
}

// Run implements Runnable.
func (s *System) Run(ctx context.Context) error {
	for {
		err := s.boot(ctx)
		var expired *watchdog.ExpiredError
		if !errors.As(err, &expired) {
			return err
		}
		s.lock.Lock()
		s.restarts = append(s.restarts, expired)
		s.current = nil
		boots := s.boots
		s.lock.Unlock()
		if max := s.Config.MaxBoots; max > 0 && boots >= max {
			s.Log.Printf(console.ModSystem, "watchdog expired on task %s, stopping after %d boots", expired.Task, boots)
			return expired
		}
		s.Log.Printf(console.ModSystem, "watchdog expired on task %s, restarting", expired.Task)
	}
}

func (s *System) boot(ctx context.Context) error {
	c := s.Config
	s.lock.Lock()
	s.boots++
	seq := s.boots
	s.lock.Unlock()

	s.Log.Printf(console.ModSystem, "starting, boot %d", seq)
	q, err := queue.New(c.QueueCapacity)
	if err != nil {
		s.Log.Printf(console.ModSystem, "failed to create queue: %v", err)
		return err
	}

	b := &Boot{
		Seq:        seq,
		Started:    time.Now(),
		Queue:      q,
		Watchdog:   watchdog.New(c.Duration(c.WatchdogTimeout)),
		Generation: &tasks.Flag{},
		Reception:  &tasks.Flag{},
	}

	b.Generator = tasks.NewGenerator(q, b.Generation, s.Log)
	b.Generator.Period = c.Duration(c.GeneratorPeriod)
	b.Generator.Trigger = c.StallTrigger
	b.Generator.StallCycles = c.StallCycles

	b.Receiver = tasks.NewReceiver(q, b.Reception, s.Log)
	b.Receiver.Timeout = c.Duration(c.ReceiveTimeout)
	b.Receiver.Delay = c.Duration(c.ReceiveDelay)
	b.Receiver.Threshold = c.FailureThreshold
	b.Receiver.Transmit = s.Transmit

	b.Supervisor = tasks.NewSupervisor(b.Generation, b.Reception, s.Log)
	b.Supervisor.Period = c.Duration(c.SupervisorPeriod)
	b.Supervisor.Reporters = s.Reporters

	wd := b.Watchdog
	wd.CheckInterval = c.Duration(c.WatchdogCheck)
	b.Tasks = []*fx.TaskSpec{
		fx.Task(tasks.TaskGenerator, fx.RunFunc(func(ctx context.Context) error {
			b.Generator.Watchdog = wd.Register(tasks.TaskGenerator)
			return b.Generator.Run(ctx)
		})).WithStack(GeneratorStack).WithPriority(fx.PriorityHigh),
		fx.Task(tasks.TaskReceiver, fx.RunFunc(func(ctx context.Context) error {
			b.Receiver.Watchdog = wd.Register(tasks.TaskReceiver)
			return b.Receiver.Run(ctx)
		})).WithStack(ReceiverStack).WithPriority(fx.PriorityHigh),
		fx.Task(tasks.TaskSupervisor, fx.RunFunc(func(ctx context.Context) error {
			b.Supervisor.Watchdog = wd.Register(tasks.TaskSupervisor)
			return b.Supervisor.Run(ctx)
		})).WithStack(SupervisorStack).WithPriority(fx.PriorityNormal),
	}

	runner := fx.NewRunnerWith(ctx)
	for _, t := range b.Tasks {
		runner.Go(t)
	}
	runner.Go(fx.NamedRun("watchdog", wd))

	s.lock.Lock()
	s.current = b
	s.lock.Unlock()
	if fn := s.OnBoot; fn != nil {
		fn(b)
	}
	s.Log.Printf(console.ModSystem, "init complete, watchdog active")

	if err := runner.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
