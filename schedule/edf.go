package schedule

import (
	"container/heap"
	"context"
	"sync"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/task"
)

// EDF runs the eligible task with the earliest deadline. DEADLINE_NOW tasks
// go first, equal deadlines run in the order they were queued, and idle
// tasks only run when nothing else is eligible.
type EDF struct {
	core  int
	clock Clock
	opts  options

	mu      sync.Mutex
	queue   edfQueue
	items   map[*task.Task]*edfItem
	running map[*task.Task]*edfItem
	seq     uint64
	wake    chan struct{}
}

var _ Scheduler = (*EDF)(nil)

// NewEDF creates the EDF scheduler for a core.
func NewEDF(core int, clock Clock, opts ...Option) *EDF {
	return &EDF{
		core:    core,
		clock:   clock,
		opts:    buildOptions(task.TypeEDF, core, opts),
		items:   make(map[*task.Task]*edfItem),
		running: make(map[*task.Task]*edfItem),
		wake:    make(chan struct{}, 1),
	}
}

func (s *EDF) Type() task.Type { return task.TypeEDF }
func (s *EDF) Core() int       { return s.core }

// Wake is signalled whenever a task is queued.
func (s *EDF) Wake() <-chan struct{} { return s.wake }

// Schedule queues t with deadline now+start+period. A period of
// task.DeadlineNow marks the task DEADLINE_NOW. A task that is already
// queued or pending is left alone.
func (s *EDF) Schedule(t *task.Task, start, period uint64) error {
	if err := checkOwner(t, task.TypeEDF, s.core); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, queued := s.items[t]; queued {
		return nil
	}
	if !task.Queueable(t.State()) {
		return errors.InvalidState("task", t.State().String(), "schedule")
	}

	item := &edfItem{t: t, seq: s.nextSeq()}
	s.arm(item, s.clock.NowUS()+start, period)
	if err := t.Transition(task.Queued); err != nil {
		return err
	}
	s.items[t] = item
	heap.Push(&s.queue, item)
	s.signal()

	s.opts.log.Debug("task scheduled", logger.Fields(
		logger.FieldTaskID, t.ID,
		"deadline", t.Deadline,
		"deadline_now", item.now,
	))
	return nil
}

// arm sets start, period and deadline.
func (s *EDF) arm(item *edfItem, start, period uint64) {
	item.t.Start = start
	item.t.Period = period
	item.now = period == task.DeadlineNow
	switch {
	case item.now:
		item.t.Deadline = start
	case period == task.DeadlineIdle:
		item.t.Deadline = task.DeadlineIdle
	default:
		item.t.Deadline = start + period
	}
}

// Reschedule moves a queued task to start at now+start, keeping its period.
func (s *EDF) Reschedule(t *task.Task, start uint64) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[t]
	if !ok {
		return errors.NotFound("task", t.ID)
	}
	s.arm(item, s.clock.NowUS()+start, t.Period)
	heap.Fix(&s.queue, item.index)
	s.signal()
	return nil
}

// Cancel removes a queued or pending task. A running task returns
// InvalidState.
func (s *EDF) Cancel(t *task.Task) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[t]; ok {
		return errors.InvalidState("task", t.State().String(), "cancel")
	}
	item, ok := s.items[t]
	if !ok {
		return nil
	}
	if err := t.Transition(task.Cancel); err != nil {
		return err
	}
	s.drop(item)
	return nil
}

// Free removes t and marks it Free.
func (s *EDF) Free(t *task.Task) error {
	if err := checkTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[t]; ok {
		return errors.InvalidState("task", t.State().String(), "free")
	}
	if item, ok := s.items[t]; ok {
		s.drop(item)
	}
	if t.Is(task.Free) {
		return nil
	}
	return t.Transition(task.Free)
}

// Tasks returns the queued tasks in selection order, ignoring start times.
func (s *EDF) Tasks() []*task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make(edfQueue, len(s.queue))
	copy(sorted, s.queue)
	out := make([]*task.Task, 0, len(sorted))
	for sorted.Len() > 0 {
		out = append(out, heap.Pop(&sorted).(*edfItem).t)
	}
	// heap.Pop rewrote the shared items' indexes; restore them.
	for i, item := range s.queue {
		item.index = i
	}
	return out
}

// Len returns the number of queued tasks.
func (s *EDF) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Ready reports whether a queued task can run now.
func (s *EDF) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.NowUS()
	for _, item := range s.queue {
		if item.t.Start <= now {
			return true
		}
	}
	return false
}

// RunNext runs the best eligible task. It returns false when no task is
// eligible.
func (s *EDF) RunNext() bool {
	item := s.pick()
	if item == nil {
		return false
	}
	t := item.t

	result := runTask(t, s.opts.log)
	s.opts.metrics.RecordTaskRun(context.Background(), s.core, "edf", result.String())

	s.mu.Lock()
	delete(s.running, t)
	complete := false
	switch result {
	case task.Completed:
		_ = t.Transition(task.Completed)
		complete = true
	case task.Cancel:
		_ = t.Transition(task.Cancel)
	case task.Preempted:
		_ = t.Transition(task.Preempted)
		s.requeue(item)
	default:
		_ = t.Transition(task.Reschedule)
		item.seq = s.nextSeq()
		t.Start += t.Period
		if !item.now && t.Deadline != task.DeadlineIdle {
			t.Deadline += t.Period
		}
		s.requeue(item)
	}
	s.mu.Unlock()

	if complete && t.Complete != nil {
		t.Complete(t.Data)
	}
	return true
}

// pick pops the first eligible task and marks it Running.
func (s *EDF) pick() *edfItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.NowUS()
	var skipped []*edfItem
	var chosen *edfItem
	for s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(*edfItem)
		if item.t.Start <= now {
			chosen = item
			break
		}
		skipped = append(skipped, item)
	}
	for _, item := range skipped {
		heap.Push(&s.queue, item)
	}
	if chosen == nil {
		return nil
	}

	delete(s.items, chosen.t)
	if chosen.t.Is(task.Queued) {
		_ = chosen.t.Transition(task.Pending)
	}
	_ = chosen.t.Transition(task.Running)
	s.running[chosen.t] = chosen
	return chosen
}

func (s *EDF) requeue(item *edfItem) {
	_ = item.t.Transition(task.Queued)
	s.items[item.t] = item
	heap.Push(&s.queue, item)
	s.signal()
}

func (s *EDF) drop(item *edfItem) {
	heap.Remove(&s.queue, item.index)
	delete(s.items, item.t)
}

func (s *EDF) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *EDF) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

type edfItem struct {
	t     *task.Task
	seq   uint64
	now   bool
	index int
}

// edfQueue implements heap.Interface.
type edfQueue []*edfItem

func (q edfQueue) Len() int { return len(q) }

func (q edfQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.t.Idle() != b.t.Idle() {
		return !a.t.Idle()
	}
	if a.now != b.now {
		return a.now
	}
	if a.t.Deadline != b.t.Deadline {
		return a.t.Deadline < b.t.Deadline
	}
	return a.seq < b.seq
}

func (q edfQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *edfQueue) Push(x any) {
	item := x.(*edfItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *edfQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
