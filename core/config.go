package core

import (
	"fmt"
	"time"

	"github.com/kbukum/dspcore/idc"
	"github.com/kbukum/dspcore/pipeline"
)

const (
	// MaxCores bounds the number of simulated cores.
	MaxCores = 8
	// DefaultWatchdogBudget lets one LL tick run for four tick periods
	// before the core is declared crashed.
	DefaultWatchdogBudget = 4.0
)

// Config is the runtime section of the service configuration.
type Config struct {
	// Cores is the number of cores; core 0 is the primary.
	Cores int `yaml:"cores" mapstructure:"cores"`
	// TickPeriod is the LL timer period.
	TickPeriod time.Duration `yaml:"tick_period" mapstructure:"tick_period"`
	// WatchdogBudget is how many tick periods one LL tick may take.
	WatchdogBudget float64 `yaml:"watchdog_budget" mapstructure:"watchdog_budget"`
	// MailboxDepth is the IDC mailbox capacity per core pair.
	MailboxDepth int             `yaml:"mailbox_depth" mapstructure:"mailbox_depth"`
	Pipeline     pipeline.Config `yaml:"pipeline" mapstructure:"pipeline"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Cores == 0 {
		c.Cores = 1
	}
	if c.TickPeriod == 0 {
		c.TickPeriod = time.Millisecond
	}
	if c.WatchdogBudget == 0 {
		c.WatchdogBudget = DefaultWatchdogBudget
	}
	if c.MailboxDepth == 0 {
		c.MailboxDepth = idc.DefaultMailboxDepth
	}
	c.Pipeline.ApplyDefaults()
}

// Validate checks the section.
func (c *Config) Validate() error {
	if c.Cores < 1 || c.Cores > MaxCores {
		return fmt.Errorf("runtime.cores must be between 1 and %d (got: %d)", MaxCores, c.Cores)
	}
	if c.TickPeriod <= 0 {
		return fmt.Errorf("runtime.tick_period must be positive (got: %s)", c.TickPeriod)
	}
	if c.WatchdogBudget <= 0 {
		return fmt.Errorf("runtime.watchdog_budget must be positive (got: %v)", c.WatchdogBudget)
	}
	if c.MailboxDepth < 1 {
		return fmt.Errorf("runtime.mailbox_depth must be at least 1 (got: %d)", c.MailboxDepth)
	}
	return c.Pipeline.Validate()
}

// Budget is the longest an LL tick may run before the watchdog fires.
func (c *Config) Budget() time.Duration {
	return time.Duration(float64(c.TickPeriod) * c.WatchdogBudget)
}

// PeriodUS is the tick period in scheduler clock µs.
func (c *Config) PeriodUS() uint64 {
	return uint64(c.TickPeriod / time.Microsecond)
}
