package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/robowdt/pkg/framework"
	"github.com/robotalks/robowdt/pkg/system"
	"github.com/robotalks/robowdt/pkg/watchdog"
)

// ErrQuit is returned from Run when the user exits the shell.
var ErrQuit = errors.New("shell quit")

// Shell provides ishell backed interactive console of a running system.
type Shell struct {
	OutputJSON bool

	Shell  *ishell.Shell
	System *system.System
}

const (
	shellKey = "$shell"
	prompt   = "wdt > "
)

var commands = []*ishell.Cmd{
	&StatusCmd,
	&WatchdogCmd,
	&TasksCmd,
	&BootsCmd,
	&StarveCmd,
}

// New creates a new shell.
func New(sys *system.System) *Shell {
	s := &Shell{
		Shell:  ishell.New(),
		System: sys,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeBooted wraps command func requires a running boot.
func MustBeBooted(fn func(c *ishell.Context, b *system.Boot)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		b := ShellFrom(c).System.Current()
		if b == nil {
			c.Err(system.ErrNotBooted)
			return
		}
		fn(c, b)
	}
}

// Run runs a single command if args present, otherwise the interactive
// shell until the user quits or ctx is done.
func (s *Shell) Run(ctx context.Context, args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	return fx.RunWithContextCancel(ctx, s.Shell.Close, func() error {
		s.Shell.Run()
		return ErrQuit
	})
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Print(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// BootStatus is a snapshot of task states.
type BootStatus struct {
	Boot          int    `json:"boot"`
	Uptime        string `json:"uptime"`
	Generator     string `json:"generator"`
	NextValue     int    `json:"next-value"`
	Receiver      string `json:"receiver"`
	Failures      int    `json:"failures"`
	Received      uint64 `json:"received"`
	QueueLen      int    `json:"queue-len"`
	QueueCap      int    `json:"queue-cap"`
	GenerationSet bool   `json:"generation"`
	ReceptionSet  bool   `json:"reception"`
}

// StatusOf samples a boot without consuming liveness flags.
func StatusOf(b *system.Boot, now time.Time) BootStatus {
	return BootStatus{
		Boot:          b.Seq,
		Uptime:        now.Sub(b.Started).Truncate(time.Millisecond).String(),
		Generator:     b.Generator.State().String(),
		NextValue:     b.Generator.Next(),
		Receiver:      b.Receiver.State().String(),
		Failures:      b.Receiver.Failures(),
		Received:      b.Receiver.Received(),
		QueueLen:      b.Queue.Len(),
		QueueCap:      b.Queue.Cap(),
		GenerationSet: b.Generation.Peek(),
		ReceptionSet:  b.Reception.Peek(),
	}
}

// FormatStatus prints BootStatus into friendly string for display.
func FormatStatus(st BootStatus) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "boot %d, up %s\n", st.Boot, st.Uptime)
	fmt.Fprintf(&w, "  generator: %s, next value %d\n", st.Generator, st.NextValue)
	fmt.Fprintf(&w, "  receiver:  %s, %d received, %d consecutive failures\n", st.Receiver, st.Received, st.Failures)
	fmt.Fprintf(&w, "  queue:     %d/%d\n", st.QueueLen, st.QueueCap)
	fmt.Fprintf(&w, "  flags:     generation=%v reception=%v\n", st.GenerationSet, st.ReceptionSet)
	return w.String()
}

// FormatEntries prints watchdog entries, overdue ones marked.
func FormatEntries(entries []watchdog.Entry) string {
	if len(entries) == 0 {
		return "no entries\n"
	}
	var w bytes.Buffer
	for _, e := range entries {
		mark := ""
		if e.Remaining <= 0 {
			mark = " OVERDUE"
		}
		fmt.Fprintf(&w, "%-12s %10s %6d feeds%s\n", e.Task, e.Remaining.Truncate(time.Millisecond), e.Feeds, mark)
	}
	return w.String()
}

// TaskInfo is the serializable form of a TaskSpec.
type TaskInfo struct {
	Name      string `json:"name"`
	StackSize int    `json:"stack-size"`
	Priority  int    `json:"priority"`
}

// FormatTasks prints task declarations.
func FormatTasks(specs []*fx.TaskSpec) string {
	var w bytes.Buffer
	for _, t := range specs {
		fmt.Fprintf(&w, "%-12s stack %5d  priority %d\n", t.Name(), t.StackSize, t.Priority)
	}
	return w.String()
}

// FormatRestarts prints boot count and restart causes.
func FormatRestarts(boots int, restarts []*watchdog.ExpiredError) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%d boots, %d restarts\n", boots, len(restarts))
	for n, r := range restarts {
		fmt.Fprintf(&w, "  #%d: %v\n", n+1, r)
	}
	return w.String()
}

var (
	// StatusCmd prints task states of the running boot.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "show task states",
		Func: MustBeBooted(func(c *ishell.Context, b *system.Boot) {
			st := StatusOf(b, time.Now())
			ShellFrom(c).print(c, st, FormatStatus(st))
		}),
	}

	// WatchdogCmd prints watchdog entries.
	WatchdogCmd = ishell.Cmd{
		Name:    "wdt",
		Aliases: []string{"w"},
		Help:    "show watchdog entries",
		Func: MustBeBooted(func(c *ishell.Context, b *system.Boot) {
			entries := b.Watchdog.Entries()
			ShellFrom(c).print(c, entries, FormatEntries(entries))
		}),
	}

	// TasksCmd prints task declarations.
	TasksCmd = ishell.Cmd{
		Name:    "tasks",
		Aliases: []string{"t"},
		Help:    "show declared tasks",
		Func: MustBeBooted(func(c *ishell.Context, b *system.Boot) {
			infos := make([]TaskInfo, 0, len(b.Tasks))
			for _, t := range b.Tasks {
				infos = append(infos, TaskInfo{Name: t.Name(), StackSize: t.StackSize, Priority: t.Priority})
			}
			ShellFrom(c).print(c, infos, FormatTasks(b.Tasks))
		}),
	}

	// BootsCmd prints restart history.
	BootsCmd = ishell.Cmd{
		Name:    "boots",
		Aliases: []string{"b"},
		Help:    "show restart history",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			boots, restarts := s.System.Boots(), s.System.Restarts()
			s.print(c, restarts, FormatRestarts(boots, restarts))
		},
	}

	// StarveCmd suppresses generator sends.
	StarveCmd = ishell.Cmd{
		Name: "starve",
		Help: "CYCLES - suppress generator sends",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("usage: starve CYCLES"))
				return
			}
			cycles, err := strconv.Atoi(c.Args[0])
			if err != nil || cycles <= 0 {
				c.Err(fmt.Errorf("invalid cycles %q", c.Args[0]))
				return
			}
			if err := ShellFrom(c).System.Starve(cycles); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}
)
