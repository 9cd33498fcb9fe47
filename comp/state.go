package comp

import (
	"strings"

	"github.com/kbukum/dspcore/errors"
)

// State is the lifecycle state of a component.
type State uint32

const (
	StateInit State = iota
	StateReady
	StateSuspend
	StatePrepare
	StatePaused
	StateActive
	StatePreActive
)

var stateNames = [...]string{
	StateInit:      "INIT",
	StateReady:     "READY",
	StateSuspend:   "SUSPEND",
	StatePrepare:   "PREPARE",
	StatePaused:    "PAUSED",
	StateActive:    "ACTIVE",
	StatePreActive: "PRE_ACTIVE",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Command is a trigger command.
type Command uint32

const (
	CmdStop Command = iota
	CmdStart
	CmdPause
	CmdRelease
	CmdReset
	CmdPrepare
	CmdXrun
	CmdPreStart
	CmdPreRelease
)

var commandNames = [...]string{
	CmdStop:       "STOP",
	CmdStart:      "START",
	CmdPause:      "PAUSE",
	CmdRelease:    "RELEASE",
	CmdReset:      "RESET",
	CmdPrepare:    "PREPARE",
	CmdXrun:       "XRUN",
	CmdPreStart:   "PRE_START",
	CmdPreRelease: "PRE_RELEASE",
}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "UNKNOWN"
}

// ParseCommand accepts the command names case-insensitively, with "-" or "_".
func ParseCommand(s string) (Command, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for c, name := range commandNames {
		if name == norm {
			return Command(c), nil
		}
	}
	return 0, errors.InvalidArgument("cmd", "unknown trigger command "+s)
}

// StartClass reports whether c walks a pipeline source to sink.
func (c Command) StartClass() bool {
	switch c {
	case CmdPreStart, CmdStart, CmdPreRelease, CmdRelease:
		return true
	default:
		return false
	}
}

// Inverse returns the command that undoes c during trigger rollback.
func (c Command) Inverse() (Command, bool) {
	switch c {
	case CmdPreStart, CmdStart:
		return CmdStop, true
	case CmdPreRelease, CmdRelease:
		return CmdPause, true
	case CmdStop:
		return CmdStart, true
	case CmdPause:
		return CmdRelease, true
	case CmdPrepare:
		return CmdReset, true
	default:
		return 0, false
	}
}

// NextState returns the state a component in cur moves to on cmd. A command
// that is not allowed from cur returns InvalidState; a command whose target
// equals cur returns AlreadySet.
func NextState(cur State, cmd Command) (State, error) {
	var (
		next    State
		allowed bool
	)
	switch cmd {
	case CmdPreStart:
		next, allowed = StatePreActive, cur == StatePrepare
	case CmdStart, CmdRelease:
		next, allowed = StateActive, cur == StatePreActive
	case CmdStop:
		next, allowed = StatePrepare, cur == StateActive || cur == StatePaused
	case CmdPause:
		next, allowed = StatePaused, cur == StateActive
	case CmdPreRelease:
		next, allowed = StatePreActive, cur == StatePaused
	case CmdPrepare:
		next, allowed = StatePrepare, cur == StateReady
	case CmdReset, CmdXrun:
		next, allowed = StateReady, true
	default:
		return cur, errors.InvalidArgument("cmd", "unknown trigger command "+cmd.String())
	}

	if next == cur {
		return cur, errors.AlreadySet("component", cur.String())
	}
	if !allowed {
		return cur, errors.InvalidState("component", cur.String(), cmd.String())
	}
	return next, nil
}

// IsAlreadySet reports whether err means the component was already in the
// requested state.
func IsAlreadySet(err error) bool {
	return errors.HasCode(err, errors.ErrCodeAlreadySet)
}
