package schedule

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/task"
)

// LL is the low-latency scheduler of one core. Every Tick runs each due
// task once, in priority order. Equal priorities run in the order they were
// scheduled.
type LL struct {
	core  int
	clock Clock
	opts  options

	mu    sync.Mutex
	tasks []*task.Task
}

var _ Scheduler = (*LL)(nil)

// NewLL creates the LL scheduler for a core.
func NewLL(core int, clock Clock, opts ...Option) *LL {
	return &LL{
		core:  core,
		clock: clock,
		opts:  buildOptions(task.TypeLL, core, opts),
	}
}

func (s *LL) Type() task.Type { return task.TypeLL }
func (s *LL) Core() int       { return s.core }

// Schedule queues t to first run at now+start and then every period µs.
// A queued task is re-armed in place of its previous entry.
func (s *LL) Schedule(t *task.Task, start, period uint64) error {
	if err := checkOwner(t, task.TypeLL, s.core); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !task.Queueable(t.State()) {
		return errors.InvalidState("task", t.State().String(), "schedule")
	}
	s.remove(t)

	t.Start = s.clock.NowUS() + start
	t.Period = period
	if err := t.Transition(task.Queued); err != nil {
		return err
	}

	// Insert after every task of the same or higher priority.
	i := len(s.tasks)
	for j, q := range s.tasks {
		if q.Priority > t.Priority {
			i = j
			break
		}
	}
	s.tasks = slices.Insert(s.tasks, i, t)

	s.opts.log.Debug("task scheduled", logger.Fields(
		logger.FieldTaskID, t.ID,
		"start", t.Start,
		"period", period,
		"priority", t.Priority,
	))
	return nil
}

// Reschedule moves the next start of a queued task to now+start.
func (s *LL) Reschedule(t *task.Task, start uint64) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.contains(t) {
		return errors.NotFound("task", t.ID)
	}
	switch t.State() {
	case task.Queued, task.Pending:
	default:
		return errors.InvalidState("task", t.State().String(), "reschedule")
	}
	t.Start = s.clock.NowUS() + start
	if t.Is(task.Pending) {
		return t.Transition(task.Queued)
	}
	return nil
}

// Cancel removes a queued or pending task. A running task cannot be
// cancelled; a task that is no longer queued is left as it is.
func (s *LL) Cancel(t *task.Task) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(t)
}

func (s *LL) cancelLocked(t *task.Task) error {
	switch t.State() {
	case task.Running:
		return errors.InvalidState("task", t.State().String(), "cancel")
	case task.Queued, task.Pending:
		if !s.contains(t) {
			return nil
		}
		if err := t.Transition(task.Cancel); err != nil {
			return err
		}
		s.remove(t)
	}
	return nil
}

// Free removes t and marks it Free.
func (s *LL) Free(t *task.Task) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Is(task.Running) {
		return errors.InvalidState("task", t.State().String(), "free")
	}
	s.remove(t)
	if t.Is(task.Free) {
		return nil
	}
	return t.Transition(task.Free)
}

// Tasks returns the queued tasks in run order.
func (s *LL) Tasks() []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

// Len returns the number of queued tasks.
func (s *LL) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Tick handles one timer interrupt: due tasks become Pending and then each
// pending task runs once, in list order.
func (s *LL) Tick() TickReport {
	began := time.Now()

	s.mu.Lock()
	now := s.clock.NowUS()
	for _, t := range s.tasks {
		if t.Is(task.Queued) && t.Start <= now {
			_ = t.Transition(task.Pending)
		}
	}
	walk := slices.Clone(s.tasks)
	s.mu.Unlock()

	ran := 0
	for _, t := range walk {
		if !s.begin(t) {
			continue
		}
		ran++

		result := runTask(t, s.opts.log)
		s.opts.metrics.RecordTaskRun(context.Background(), s.core, "ll", result.String())
		if s.finish(t, result) && t.Complete != nil {
			t.Complete(t.Data)
		}
	}

	report := TickReport{Core: s.core, Now: now, Ran: ran, Duration: time.Since(began)}
	s.opts.metrics.RecordTick(context.Background(), s.core, report.Duration)
	return report
}

// begin moves a pending task that is still queued here to Running.
func (s *LL) begin(t *task.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.Is(task.Pending) || !s.contains(t) {
		return false
	}
	return t.Transition(task.Running) == nil
}

// finish applies the run result. It reports whether the Complete callback
// is due.
func (s *LL) finish(t *task.Task, result task.State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch result {
	case task.Completed:
		_ = t.Transition(task.Completed)
		s.remove(t)
		return true
	case task.Cancel:
		_ = t.Transition(task.Cancel)
		s.remove(t)
	default:
		_ = t.Transition(task.Reschedule)
		t.Start += t.Period
		_ = t.Transition(task.Queued)
	}
	return false
}

func (s *LL) contains(t *task.Task) bool {
	return slices.Contains(s.tasks, t)
}

func (s *LL) remove(t *task.Task) {
	if i := slices.Index(s.tasks, t); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
}
