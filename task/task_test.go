package task

import (
	"testing"

	"github.com/kbukum/dspcore/errors"
)

func noop(any) State { return Completed }

func TestInitValid(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		priority int
		core     int
	}{
		{"ll high core0", TypeLL, PriorityHigh, 0},
		{"ll idle core3", TypeLL, PriorityIdle, 3},
		{"edf med core1", TypeEDF, PriorityMed, 1},
		{"edf low core0", TypeEDF, PriorityLow, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var tk Task
			if err := InitTask(&tk, tc.typ, tc.priority, noop, "data", tc.core, 0); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tk.State() != Init {
				t.Errorf("expected INIT, got %s", tk.State())
			}
			if tk.Type != tc.typ || tk.Priority != tc.priority || tk.Core != tc.core {
				t.Errorf("fields not stored: %s", tk.String())
			}
			if tk.Data != "data" || tk.Run == nil {
				t.Error("expected data and run callback stored")
			}
		})
	}
}

func TestInitUnknownTypeLeavesTaskUntouched(t *testing.T) {
	for _, typ := range []Type{2, 7, 255} {
		tk := &Task{Name: "pipe1", Type: TypeLL, Priority: PriorityLow, Core: 1, Start: 42, Period: 1000}
		if err := tk.Transition(Queued); err != nil {
			t.Fatalf("setup: %v", err)
		}

		err := InitTask(tk, typ, PriorityHigh, noop, "other", 0, FlagIdle)
		if !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
			t.Fatalf("type %d: expected INVALID_ARGUMENT, got %v", typ, err)
		}
		if tk.Type != TypeLL || tk.Priority != PriorityLow || tk.Core != 1 {
			t.Errorf("type %d: identity fields modified: %s", typ, tk.String())
		}
		if tk.Start != 42 || tk.Period != 1000 || tk.Data != nil || tk.Run != nil || tk.Flags != 0 {
			t.Errorf("type %d: scheduling fields modified", typ)
		}
		if tk.State() != Queued {
			t.Errorf("type %d: state modified to %s", typ, tk.State())
		}
	}
}

func TestInitRejectsBadArguments(t *testing.T) {
	var tk Task
	tests := []struct {
		name string
		err  error
	}{
		{"nil task", InitTask(nil, TypeLL, 0, noop, nil, 0, 0)},
		{"nil run", InitTask(&tk, TypeLL, 0, nil, nil, 0, 0)},
		{"negative core", InitTask(&tk, TypeLL, 0, noop, nil, -1, 0)},
		{"priority too low", InitTask(&tk, TypeLL, PriorityIdle+1, noop, nil, 0, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.HasCode(tc.err, errors.ErrCodeInvalidArgument) {
				t.Errorf("expected INVALID_ARGUMENT, got %v", tc.err)
			}
		})
	}
}

func TestZeroValueIsInit(t *testing.T) {
	var tk Task
	if tk.State() != Init {
		t.Errorf("expected zero value INIT, got %s", tk.State())
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Init, Queued, true},
		{Init, Running, false},
		{Queued, Pending, true},
		{Queued, Cancel, true},
		{Queued, Running, false},
		{Pending, Running, true},
		{Pending, Cancel, true},
		{Running, Completed, true},
		{Running, Reschedule, true},
		{Running, Preempted, true},
		{Running, Cancel, true},
		{Running, Queued, false},
		{Running, Free, false},
		{Reschedule, Queued, true},
		{Preempted, Pending, true},
		{Completed, Queued, true},
		{Completed, Running, false},
		{Cancel, Queued, true},
		{Completed, Free, true},
		{Init, Free, true},
		{Free, Queued, false},
	}
	for _, tc := range tests {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.ok {
				t.Errorf("CanTransition = %v, want %v", got, tc.ok)
			}
		})
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	var tk Task
	err := tk.Transition(Running)
	if !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if tk.State() != Init {
		t.Errorf("state changed on illegal transition: %s", tk.State())
	}
}

func TestFullLifecycleStaysValid(t *testing.T) {
	var tk Task
	if err := InitTask(&tk, TypeLL, PriorityMed, noop, nil, 0, 0); err != nil {
		t.Fatal(err)
	}
	path := []State{Queued, Pending, Running, Reschedule, Queued, Pending, Running, Completed, Queued, Cancel, Free}
	for _, s := range path {
		if err := tk.Transition(s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		if !tk.State().Valid() {
			t.Fatalf("invalid state after transition: %d", tk.State())
		}
	}
}

func TestStateStrings(t *testing.T) {
	if len(States()) != 9 {
		t.Fatalf("expected nine states, got %d", len(States()))
	}
	for _, s := range States() {
		if !s.Valid() || s.String() == "UNKNOWN" {
			t.Errorf("state %d should be valid and named", s)
		}
	}
	if State(9).Valid() || State(9).String() != "UNKNOWN" {
		t.Error("state 9 must be invalid")
	}
}

func TestQueueable(t *testing.T) {
	for _, s := range States() {
		want := s == Init || s == Queued || s == Completed || s == Cancel
		if Queueable(s) != want {
			t.Errorf("Queueable(%s) = %v, want %v", s, Queueable(s), want)
		}
	}
}
