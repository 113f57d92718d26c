package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
	"github.com/robotalks/robowdt/pkg/queue"
)

type trace struct {
	lock   sync.Mutex
	events []string
}

func (t *trace) add(format string, args ...interface{}) {
	t.lock.Lock()
	t.events = append(t.events, fmt.Sprintf(format, args...))
	t.lock.Unlock()
}

func (t *trace) snapshot() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.events...)
}

func (t *trace) count(event string) int {
	var n int
	for _, e := range t.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

type traceFeeder struct {
	tr *trace
}

func (f *traceFeeder) Feed() { f.tr.add("feed") }

type traceSender struct {
	tr   *trace
	full bool
	sent []int
}

func (s *traceSender) TrySend(value int) error {
	s.tr.add("send %d", value)
	if s.full {
		return queue.ErrFull
	}
	s.sent = append(s.sent, value)
	return nil
}

type step struct {
	value int
	err   error
}

type scriptedSource struct {
	tr    *trace
	steps []step
}

func (s *scriptedSource) Receive(ctx context.Context, timeout time.Duration) (int, error) {
	s.tr.add("receive")
	if len(s.steps) == 0 {
		return 0, queue.ErrTimeout
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.value, st.err
}

var noDelay = fx.DelayFunc(func(ctx context.Context, d time.Duration) error {
	return ctx.Err()
})

func testLogger() (*console.Logger, *console.Recorder) {
	rec := &console.Recorder{}
	return console.NewLogger("test", rec), rec
}
