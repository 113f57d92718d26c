package console

import (
	"sync"
	"time"
)

// Recorder keeps every emitted line in memory.
type Recorder struct {
	lock  sync.Mutex
	lines []Line
}

// Emit implements Sink.
func (r *Recorder) Emit(line Line) {
	r.lock.Lock()
	r.lines = append(r.lines, line)
	r.lock.Unlock()
}

// Lines returns a copy of recorded lines.
func (r *Recorder) Lines() []Line {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Line(nil), r.lines...)
}

// Len returns the number of recorded lines.
func (r *Recorder) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.lines)
}

// Messages returns messages of recorded lines tagged with any of mods, in order.
func (r *Recorder) Messages(mods ...Module) []string {
	var msgs []string
	for _, line := range r.Lines() {
		for _, mod := range mods {
			if line.Module == mod {
				msgs = append(msgs, line.Message)
				break
			}
		}
	}
	return msgs
}

// WaitFor polls until cond holds for the recorded lines or timeout elapses.
func (r *Recorder) WaitFor(cond func([]Line) bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond(r.Lines()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
