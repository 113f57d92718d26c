// Package watchdog implements the task liveness watchdog.
//
// Every registered task owns an entry with its own countdown. Feeding
// an entry restarts its countdown. When any countdown lapses the
// watchdog fires once and Run returns an *ExpiredError, which the
// owner of the task set treats as a request for a full restart.
package watchdog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout is the global watchdog timeout.
const DefaultTimeout = 10 * time.Second

// ExpiredError reports the entry whose countdown lapsed.
type ExpiredError struct {
	Task    string
	Overdue time.Duration
}

// Error implements error.
func (e *ExpiredError) Error() string {
	return fmt.Sprintf("watchdog expired: task %q not fed for %v", e.Task, e.Overdue)
}

// Handle is a registered entry. Only its owning task should feed it.
type Handle struct {
	name     string
	wd       *Watchdog
	lastFeed atomic.Int64
	feeds    atomic.Uint64
}

// Name returns the registered task name.
func (h *Handle) Name() string {
	return h.name
}

// Feed restarts the countdown of the entry.
func (h *Handle) Feed() {
	h.lastFeed.Store(h.wd.now().UnixNano())
	h.feeds.Add(1)
}

// Feeds returns the number of feeds so far.
func (h *Handle) Feeds() uint64 {
	return h.feeds.Load()
}

// Entry is a snapshot of a registered entry.
type Entry struct {
	Task      string
	Remaining time.Duration
	Feeds     uint64
}

// Watchdog tracks registered entries.
type Watchdog struct {
	Timeout       time.Duration
	CheckInterval time.Duration
	// OnExpire is called once, from Run, when the watchdog fires.
	OnExpire func(*ExpiredError)

	now func() time.Time

	lock    sync.Mutex
	entries map[string]*Handle
	order   []string
	expired *ExpiredError
}

// New creates a Watchdog.
func New(timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Watchdog{
		Timeout: timeout,
		now:     time.Now,
		entries: make(map[string]*Handle),
	}
}

// Register adds a task entry and starts its countdown.
// Registering the same task again returns the existing handle.
func (w *Watchdog) Register(task string) *Handle {
	w.lock.Lock()
	defer w.lock.Unlock()
	if h, ok := w.entries[task]; ok {
		return h
	}
	h := &Handle{name: task, wd: w}
	h.lastFeed.Store(w.now().UnixNano())
	w.entries[task] = h
	w.order = append(w.order, task)
	glog.V(2).Infof("watchdog: registered %q", task)
	return h
}

// Entries returns a snapshot of all entries in registration order.
func (w *Watchdog) Entries() []Entry {
	now := w.now()
	w.lock.Lock()
	defer w.lock.Unlock()
	entries := make([]Entry, 0, len(w.order))
	for _, name := range w.order {
		h := w.entries[name]
		entries = append(entries, Entry{
			Task:      name,
			Remaining: w.Timeout - now.Sub(time.Unix(0, h.lastFeed.Load())),
			Feeds:     h.feeds.Load(),
		})
	}
	return entries
}

// Expired returns the error latched when the watchdog fired, or nil.
func (w *Watchdog) Expired() *ExpiredError {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.expired
}

// Check evaluates all countdowns. Once an entry lapsed the result is
// latched: the most overdue entry at that moment is reported forever.
func (w *Watchdog) Check() *ExpiredError {
	now := w.now()
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.expired != nil {
		return w.expired
	}
	var lapsed []*ExpiredError
	for _, name := range w.order {
		idle := now.Sub(time.Unix(0, w.entries[name].lastFeed.Load()))
		if idle >= w.Timeout {
			lapsed = append(lapsed, &ExpiredError{Task: name, Overdue: idle})
		}
	}
	if len(lapsed) == 0 {
		return nil
	}
	sort.SliceStable(lapsed, func(i, j int) bool {
		return lapsed[i].Overdue > lapsed[j].Overdue
	})
	w.expired = lapsed[0]
	return w.expired
}

// Run implements Runnable. It returns an *ExpiredError when an entry lapses.
func (w *Watchdog) Run(ctx context.Context) error {
	interval := w.CheckInterval
	if interval <= 0 {
		interval = w.Timeout / 20
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired := w.Check(); expired != nil {
				glog.Warningf("watchdog: %v", expired)
				if fn := w.OnExpire; fn != nil {
					fn(expired)
				}
				return expired
			}
		}
	}
}
