package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/idc"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/schedule"
)

// Primary is the core that serves host commands.
const Primary = 0

// Core is the per-core execution context.
type Core struct {
	ID int

	ll      *schedule.LL
	edf     *schedule.EDF
	bus     *idc.Bus
	handler idc.Handler
	period  time.Duration
	budget  time.Duration
	metrics *observability.DSPMetrics
	log     *logger.Logger

	ticks    atomic.Uint64
	stopping atomic.Bool

	mu       sync.Mutex
	crashErr error
}

// LL returns the core's LL scheduler.
func (c *Core) LL() *schedule.LL { return c.ll }

// EDF returns the core's EDF scheduler.
func (c *Core) EDF() *schedule.EDF { return c.edf }

// Ticks returns how many LL ticks the core has run.
func (c *Core) Ticks() uint64 { return c.ticks.Load() }

// Crashed reports whether the watchdog fired.
func (c *Core) Crashed() bool { return c.Err() != nil }

// Err returns the fatal error that crashed the core, if any.
func (c *Core) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crashErr
}

// Run is the core loop. It returns nil when ctx is cancelled or the core was
// powered down, and a Fatal error when the watchdog fired.
func (c *Core) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	doorbell := c.bus.Receive(c.ID)

	c.log.Info("core running", logger.Fields("tick", c.period.String(), "budget", c.budget.String()))
	for !c.stopping.Load() {
		if c.edf.Ready() {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := c.Tick(); err != nil {
					return err
				}
			case <-doorbell:
				c.Drain()
			default:
				c.edf.RunNext()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Tick(); err != nil {
				return err
			}
		case <-doorbell:
			c.Drain()
		case <-c.edf.Wake():
		}
	}
	c.log.Info("core powered down")
	return nil
}

// Tick runs one LL tick and checks it against the watchdog budget.
func (c *Core) Tick() error {
	report := c.ll.Tick()
	c.ticks.Add(1)
	if c.budget <= 0 || report.Duration <= c.budget {
		return nil
	}

	c.metrics.RecordOverrun(context.Background(), c.ID)
	err := errors.Fatal(fmt.Sprintf("watchdog: core %d tick took %s, budget %s", c.ID, report.Duration, c.budget)).
		WithDetails(map[string]any{"core": c.ID, "ran": report.Ran})
	c.mu.Lock()
	c.crashErr = err
	c.mu.Unlock()
	c.log.Error("core crashed", logger.MergeWithError(logger.Fields("ran", report.Ran), err))
	return err
}

// Drain handles every pending IDC message for this core.
func (c *Core) Drain() int {
	return c.bus.Drain(c.ID, c.handler)
}
