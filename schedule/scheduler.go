package schedule

import (
	"fmt"
	"time"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/task"
)

// Scheduler is the operation set shared by the LL and EDF schedulers.
type Scheduler interface {
	Type() task.Type
	Core() int
	// Schedule queues t to start after start µs with the given period.
	Schedule(t *task.Task, start, period uint64) error
	// Reschedule moves the start of a queued task to now+start.
	Reschedule(t *task.Task, start uint64) error
	// Cancel removes a queued or pending task.
	Cancel(t *task.Task) error
	// Free removes t and marks it Free.
	Free(t *task.Task) error
	// Tasks returns the queued tasks in run order.
	Tasks() []*task.Task
}

// Option configures a scheduler.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *observability.DSPMetrics
}

// WithLogger sets the scheduler logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records task runs and ticks.
func WithMetrics(m *observability.DSPMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(typ task.Type, core int, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(logger.SubsystemSchedule + "." + typ.String())
	}
	o.log = o.log.WithCore(core)
	return o
}

// checkOwner verifies that t belongs to a scheduler of the given type and core.
func checkTask(t *task.Task) error {
	if t == nil {
		return errors.InvalidArgument("task", "nil task")
	}
	return nil
}

func checkOwner(t *task.Task, typ task.Type, core int) error {
	if err := checkTask(t); err != nil {
		return err
	}
	if t.Type != typ {
		return errors.InvalidArgument("type", fmt.Sprintf("%s task on %s scheduler", t.Type, typ))
	}
	if t.Core != core {
		return errors.InvalidArgument("core", fmt.Sprintf("task bound to core %d, scheduler on core %d", t.Core, core))
	}
	return nil
}

// runTask calls t.Run and converts a panic into Completed.
func runTask(t *task.Task, log *logger.Logger) (result task.State) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", logger.Fields(
				logger.FieldTaskID, t.ID,
				"task", t.Name,
				"panic", fmt.Sprint(r),
			))
			result = task.Completed
		}
	}()
	return t.Run(t.Data)
}

// TickReport summarizes one LL tick.
type TickReport struct {
	Core     int
	Now      uint64
	Ran      int
	Duration time.Duration
}
