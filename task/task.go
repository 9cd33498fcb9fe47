package task

import (
	"fmt"
	"sync/atomic"

	"github.com/kbukum/dspcore/errors"
)

// Type selects the scheduler that owns a task.
type Type uint8

const (
	TypeEDF Type = iota
	TypeLL
)

func (t Type) String() string {
	switch t {
	case TypeEDF:
		return "edf"
	case TypeLL:
		return "ll"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Valid reports whether t is a known scheduler type.
func (t Type) Valid() bool {
	return t == TypeEDF || t == TypeLL
}

// Priorities. Lower runs earlier.
const (
	PriorityHigh       = 0
	PriorityMed        = 4
	PriorityLow        = 9
	PriorityAlmostIdle = 18
	PriorityIdle       = 19
)

// Deadline sentinels for EDF tasks, passed as the period to Schedule.
const (
	// DeadlineNow runs ahead of every task with a concrete deadline.
	DeadlineNow uint64 = 0
	// DeadlineIdle never becomes urgent.
	DeadlineIdle uint64 = ^uint64(0)
)

// Flags modify scheduling.
type Flags uint32

const (
	// FlagIdle marks background work: an EDF scheduler only runs it when
	// no other task is eligible.
	FlagIdle Flags = 1 << iota
)

// RunFunc is the unit of work. It must not block. It returns Reschedule,
// Completed, Cancel or Preempted; any other value is treated as Reschedule.
type RunFunc func(data any) State

// CompleteFunc is called once after Run returned Completed.
type CompleteFunc func(data any)

// Task is a schedulable unit of work. Scheduling fields are owned by the
// scheduler the task is queued on.
type Task struct {
	ID       uint32
	Name     string
	Type     Type
	Priority int
	Core     int
	Flags    Flags

	// Start, Period and Deadline are in scheduler clock µs.
	Start    uint64
	Period   uint64
	Deadline uint64

	Data     any
	Run      RunFunc
	Complete CompleteFunc

	state atomic.Uint32
}

// InitTask prepares t for scheduling. An unknown type returns InvalidArgument
// and leaves t unmodified. InitTask never touches a scheduler queue.
func InitTask(t *Task, typ Type, priority int, run RunFunc, data any, core int, flags Flags) error {
	if t == nil {
		return errors.InvalidArgument("task", "nil task")
	}
	if !typ.Valid() {
		return errors.InvalidArgument("type", fmt.Sprintf("unknown scheduler type %d", uint8(typ)))
	}
	if run == nil {
		return errors.InvalidArgument("run", "run callback is required")
	}
	if core < 0 {
		return errors.InvalidArgument("core", fmt.Sprintf("negative core %d", core))
	}
	if priority < PriorityHigh || priority > PriorityIdle {
		return errors.InvalidArgument("priority", fmt.Sprintf("priority %d out of range", priority))
	}

	t.Type = typ
	t.Priority = priority
	t.Run = run
	t.Data = data
	t.Core = core
	t.Flags = flags
	t.Start, t.Period, t.Deadline = 0, 0, 0
	t.state.Store(uint32(Init))
	return nil
}

// State returns the current state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Transition moves t to the given state if the edge is legal, otherwise it
// returns InvalidState and leaves the state unchanged.
func (t *Task) Transition(to State) error {
	for {
		from := t.State()
		if !CanTransition(from, to) {
			return illegal(from, to)
		}
		if t.state.CompareAndSwap(uint32(from), uint32(to)) {
			return nil
		}
	}
}

// Is reports whether t is in state s.
func (t *Task) Is(s State) bool {
	return t.State() == s
}

// Idle reports whether t carries FlagIdle.
func (t *Task) Idle() bool {
	return t.Flags&FlagIdle != 0
}

func (t *Task) String() string {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("task-%d", t.ID)
	}
	return fmt.Sprintf("%s[%s core=%d prio=%d %s]", name, t.Type, t.Core, t.Priority, t.State())
}
