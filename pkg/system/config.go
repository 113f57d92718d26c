package system

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robotalks/robowdt/pkg/queue"
)

// Config provides options of the task set. Periods and timeouts are
// expressed in time units, Unit being the length of one.
type Config struct {
	Owner string
	Unit  time.Duration

	QueueCapacity    int
	GeneratorPeriod  float64
	StallTrigger     int
	StallCycles      int
	ReceiveTimeout   float64
	ReceiveDelay     float64
	FailureThreshold int
	SupervisorPeriod float64
	WatchdogTimeout  float64
	// WatchdogCheck is the expiry check interval, 0 for WatchdogTimeout/20.
	WatchdogCheck float64

	// MaxBoots limits the number of boots, 0 means unlimited.
	MaxBoots int

	// MQTTBrokerURL enables telemetry publishing.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebsocketAddr enables the websocket log tail.
	WebsocketAddr string
	Interactive   bool
}

var defaultConfig = Config{
	Unit:             time.Second,
	QueueCapacity:    queue.DefaultCapacity,
	GeneratorPeriod:  1,
	StallTrigger:     10,
	StallCycles:      20,
	ReceiveTimeout:   3,
	ReceiveDelay:     0.1,
	FailureThreshold: 3,
	SupervisorPeriod: 5,
	WatchdogTimeout:  10,
}

func init() {
	if val := os.Getenv("ROBOWDT_OWNER"); val != "" {
		defaultConfig.Owner = val
	}
	if val := os.Getenv("ROBOWDT_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Owner, "owner", defaultConfig.Owner, "Owner id printed in every line, defaults to a machine derived id.")
	flag.DurationVar(&defaultConfig.Unit, "unit", defaultConfig.Unit, "Length of one time unit.")
	flag.IntVar(&defaultConfig.QueueCapacity, "queue-capacity", defaultConfig.QueueCapacity, "Capacity of the shared queue.")
	flag.Float64Var(&defaultConfig.GeneratorPeriod, "gen-period", defaultConfig.GeneratorPeriod, "Generator period (units).")
	flag.IntVar(&defaultConfig.StallTrigger, "stall-trigger", defaultConfig.StallTrigger, "Value at which the generator stalls, negative disables.")
	flag.IntVar(&defaultConfig.StallCycles, "stall-cycles", defaultConfig.StallCycles, "Generator periods spent stalling, 0 disables.")
	flag.Float64Var(&defaultConfig.ReceiveTimeout, "recv-timeout", defaultConfig.ReceiveTimeout, "Receiver wait per value (units).")
	flag.Float64Var(&defaultConfig.ReceiveDelay, "recv-delay", defaultConfig.ReceiveDelay, "Receiver delay between cycles (units).")
	flag.IntVar(&defaultConfig.FailureThreshold, "recv-failures", defaultConfig.FailureThreshold, "Consecutive receive timeouts halting the receiver.")
	flag.Float64Var(&defaultConfig.SupervisorPeriod, "supervisor-period", defaultConfig.SupervisorPeriod, "Supervisor observation window (units).")
	flag.Float64Var(&defaultConfig.WatchdogTimeout, "wdt-timeout", defaultConfig.WatchdogTimeout, "Watchdog timeout (units).")
	flag.Float64Var(&defaultConfig.WatchdogCheck, "wdt-check", defaultConfig.WatchdogCheck, "Watchdog check interval (units), 0 for timeout/20.")
	flag.IntVar(&defaultConfig.MaxBoots, "max-boots", defaultConfig.MaxBoots, "Stop after this many boots, 0 for unlimited.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry.")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Listen address of the websocket log tail.")
	flag.BoolVar(&defaultConfig.Interactive, "i", defaultConfig.Interactive, "Start the interactive console.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Duration converts units into a duration.
func (c *Config) Duration(units float64) time.Duration {
	return time.Duration(units * float64(c.Unit))
}

// OwnerID returns Owner, or a machine derived id if unset.
func (c *Config) OwnerID() string {
	if c.Owner != "" {
		return c.Owner
	}
	return MachineOwner()
}

// Validate checks every task can feed the watchdog in time.
func (c *Config) Validate() error {
	if c.Unit <= 0 {
		return fmt.Errorf("time unit must be positive")
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}
	if c.FailureThreshold < 1 {
		return fmt.Errorf("receive failure threshold must be at least 1")
	}
	if c.WatchdogTimeout <= 0 {
		return fmt.Errorf("watchdog timeout must be positive")
	}
	if c.WatchdogCheck < 0 || c.WatchdogCheck >= c.WatchdogTimeout {
		return fmt.Errorf("watchdog check interval %v must be within [0, %v)", c.WatchdogCheck, c.WatchdogTimeout)
	}
	if c.GeneratorPeriod <= 0 || c.GeneratorPeriod >= c.WatchdogTimeout {
		return fmt.Errorf("generator period %v must be within (0, %v)", c.GeneratorPeriod, c.WatchdogTimeout)
	}
	if c.SupervisorPeriod <= 0 || c.SupervisorPeriod >= c.WatchdogTimeout {
		return fmt.Errorf("supervisor period %v must be within (0, %v)", c.SupervisorPeriod, c.WatchdogTimeout)
	}
	if c.ReceiveTimeout <= 0 || c.ReceiveDelay < 0 {
		return fmt.Errorf("receive timeout must be positive and delay not negative")
	}
	if cycle := c.ReceiveTimeout + c.ReceiveDelay; cycle >= c.WatchdogTimeout {
		return fmt.Errorf("receiver cycle %v must be shorter than watchdog timeout %v", cycle, c.WatchdogTimeout)
	}
	return nil
}
