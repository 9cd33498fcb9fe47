package task

import "github.com/kbukum/dspcore/errors"

// State is the scheduling state of a task. The zero value is Init.
type State uint32

const (
	Init State = iota
	Queued
	Pending
	Running
	Preempted
	Completed
	Free
	Cancel
	Reschedule
)

var stateNames = [...]string{
	Init:       "INIT",
	Queued:     "QUEUED",
	Pending:    "PENDING",
	Running:    "RUNNING",
	Preempted:  "PREEMPTED",
	Completed:  "COMPLETED",
	Free:       "FREE",
	Cancel:     "CANCEL",
	Reschedule: "RESCHEDULE",
}

func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the nine task states.
func (s State) Valid() bool {
	return s <= Reschedule
}

// States returns every state in declaration order.
func States() []State {
	return []State{Init, Queued, Pending, Running, Preempted, Completed, Free, Cancel, Reschedule}
}

// transitions lists the legal successors of each state. Free is handled
// separately: it is reachable from every state except Running.
var transitions = map[State][]State{
	Init:       {Queued},
	Queued:     {Queued, Pending, Cancel},
	Pending:    {Running, Queued, Cancel},
	Running:    {Completed, Preempted, Reschedule, Cancel},
	Preempted:  {Queued, Pending, Cancel},
	Reschedule: {Queued, Pending, Cancel},
	Completed:  {Queued},
	Cancel:     {Queued},
	Free:       {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == Free {
		return from != Running
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Queueable reports whether a task in s may be (re-)queued by a scheduler.
func Queueable(s State) bool {
	switch s {
	case Init, Queued, Completed, Cancel:
		return true
	}
	return false
}

func illegal(from, to State) error {
	return errors.InvalidState("task", from.String(), "transition to "+to.String())
}
