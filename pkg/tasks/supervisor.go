package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
)

// DefaultSupervisorPeriod is the length of an observation window.
const DefaultSupervisorPeriod = 5 * time.Second

// Status is the liveness report of one observation window.
type Status struct {
	Time       time.Time
	Generation bool
	Reception  bool
}

// StatusReporter receives supervisor reports.
type StatusReporter interface {
	ReportStatus(Status)
}

// Supervisor samples and clears both liveness flags once per Period.
type Supervisor struct {
	Generation *Flag
	Reception  *Flag
	Watchdog   Feeder
	Log        *console.Logger
	Delayer    fx.Delayer
	Period     time.Duration
	Reporters  []StatusReporter

	now     func() time.Time
	lock    sync.Mutex
	last    Status
	reports int
}

// NewSupervisor creates a Supervisor with defaults.
func NewSupervisor(generation, reception *Flag, log *console.Logger) *Supervisor {
	return &Supervisor{
		Generation: generation,
		Reception:  reception,
		Log:        log,
		Delayer:    fx.Sleep,
		Period:     DefaultSupervisorPeriod,
		now:        time.Now,
	}
}

// Last returns the latest report and the number of reports so far.
func (s *Supervisor) Last() (Status, int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.last, s.reports
}

// Run implements Runnable.
func (s *Supervisor) Run(ctx context.Context) error {
	return fx.NewLoop(TaskSupervisor, s).Run(ctx)
}

// Cycle implements Cycler.
func (s *Supervisor) Cycle(ctx context.Context) error {
	if err := s.Delayer.Delay(ctx, s.Period); err != nil {
		return err
	}
	st := s.Sample()
	s.Log.Printf(console.ModSupervision, "status: generator [%s], receiver [%s]",
		activity(st.Generation), activity(st.Reception))
	for _, r := range s.Reporters {
		r.ReportStatus(st)
	}
	s.Watchdog.Feed()
	return nil
}

// Sample takes both flags, leaving them cleared.
func (s *Supervisor) Sample() Status {
	st := Status{
		Time:       s.now(),
		Generation: s.Generation.Take(),
		Reception:  s.Reception.Take(),
	}
	s.lock.Lock()
	s.last = st
	s.reports++
	s.lock.Unlock()
	return st
}

func activity(ok bool) string {
	if ok {
		return "ACTIVE"
	}
	return "INACTIVE"
}
