package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/schedule"
	"github.com/kbukum/dspcore/stream"
	"github.com/kbukum/dspcore/task"
)

var monoS16 = stream.Params{Rate: 48000, Channels: 1, Format: stream.FormatS16}

const (
	testPeriod = 1000
	testFrames = 4
)

// trace records the commands every stub receives, in order.
type trace struct {
	calls []string
}

type stub struct {
	comp.BaseOps
	name   string
	trace  *trace
	fail   map[comp.Command]error
	result comp.CopyResult
	err    error
	copies int
}

func (s *stub) Trigger(_ *comp.Device, cmd comp.Command) error {
	if err, ok := s.fail[cmd]; ok {
		return err
	}
	s.trace.calls = append(s.trace.calls, s.name+":"+cmd.String())
	return nil
}

func (s *stub) Copy(*comp.Device) (comp.CopyResult, error) {
	s.copies++
	return s.result, s.err
}

// recordingNotifier counts pipeline events.
type recordingNotifier struct {
	xruns    []uint32
	failures []comp.Command
}

func (n *recordingNotifier) PipelineXrun(id uint32, _ error) { n.xruns = append(n.xruns, id) }
func (n *recordingNotifier) TriggerFailed(_ uint32, cmd comp.Command, _ error) {
	n.failures = append(n.failures, cmd)
}

type harness struct {
	t        *testing.T
	sched    *schedule.Registry
	ll       *schedule.LL
	clock    *schedule.ManualClock
	comps    *comp.Registry
	trace    *trace
	stubs    map[string]*stub
	notifier *recordingNotifier
	nextBuf  uint32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		sched:    schedule.NewRegistry(),
		clock:    schedule.NewManualClock(0),
		comps:    comp.NewBuiltinRegistry(),
		trace:    &trace{},
		stubs:    make(map[string]*stub),
		notifier: &recordingNotifier{},
	}
	h.ll = schedule.NewLL(0, h.clock)
	if err := h.sched.Register(h.ll); err != nil {
		t.Fatal(err)
	}
	err := h.comps.Register(comp.NewDriver(uuid.New(), "stub", func(cfg comp.Config) (comp.Ops, error) {
		name, _ := cfg.Options["name"].(string)
		s := &stub{name: name, trace: h.trace, fail: make(map[comp.Command]error)}
		h.stubs[name] = s
		return s, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) pipeline(cfg Config) *Pipeline {
	h.t.Helper()
	p, err := New(Spec{ID: 1, Period: testPeriod, PeriodFrames: testFrames, Priority: task.PriorityMed},
		h.sched, cfg, WithNotifier(h.notifier), WithLogger(logger.Nop()))
	if err != nil {
		h.t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func (h *harness) add(p *Pipeline, id uint32, driver string, opts map[string]any) *comp.Device {
	h.t.Helper()
	d, err := h.comps.New(comp.Config{ID: id, PipelineID: p.ID, Driver: driver, Options: opts})
	if err != nil {
		h.t.Fatalf("new %s: %v", driver, err)
	}
	if err := p.Add(d); err != nil {
		h.t.Fatalf("add %d: %v", id, err)
	}
	return d
}

func (h *harness) connect(p *Pipeline, from, to uint32, size int) *buffer.Buffer {
	h.t.Helper()
	h.nextBuf++
	b, err := buffer.New(h.nextBuf, size)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := p.Connect(b, from, to); err != nil {
		h.t.Fatalf("connect %d->%d: %v", from, to, err)
	}
	return b
}

// chain builds A -> B -> C from stubs and prepares it.
func (h *harness) chain(cfg Config) *Pipeline {
	h.t.Helper()
	p := h.pipeline(cfg)
	for i, name := range []string{"A", "B", "C"} {
		h.add(p, uint32(i+1), "stub", map[string]any{"name": name})
	}
	size := 4 * monoS16.PeriodBytes(testFrames)
	h.connect(p, 1, 2, size)
	h.connect(p, 2, 3, size)
	if err := p.Complete(1, 3); err != nil {
		h.t.Fatalf("complete: %v", err)
	}
	if err := p.Params(monoS16); err != nil {
		h.t.Fatalf("params: %v", err)
	}
	if err := p.Prepare(); err != nil {
		h.t.Fatalf("prepare: %v", err)
	}
	return p
}

func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.ll.Tick()
		h.clock.Advance(testPeriod)
	}
}

func states(p *Pipeline) []comp.State {
	var out []comp.State
	for _, d := range p.Components() {
		out = append(out, d.State())
	}
	return out
}

func TestCompleteRejectsCycle(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	h.add(p, 1, "stub", map[string]any{"name": "A"})
	h.add(p, 2, "stub", map[string]any{"name": "B"})
	h.connect(p, 1, 2, 64)
	h.connect(p, 2, 1, 64)

	err := p.Complete(1, 2)
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected CONFIGURATION, got %v", err)
	}
	if p.Status() != comp.StateInit {
		t.Errorf("expected INIT, got %s", p.Status())
	}
}

func TestCompleteChecksEndpoints(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	h.add(p, 1, "stub", map[string]any{"name": "A"})
	h.add(p, 2, "stub", map[string]any{"name": "B"})
	h.connect(p, 1, 2, 64)

	tests := []struct {
		name         string
		source, sink uint32
		code         errors.ErrorCode
	}{
		{"unknown source", 9, 2, errors.ErrCodeNotFound},
		{"source with upstream", 2, 2, errors.ErrCodeConfiguration},
		{"sink with downstream", 1, 1, errors.ErrCodeConfiguration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := p.Complete(tc.source, tc.sink); !errors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}

	if err := p.Complete(1, 2); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.Status() != comp.StateReady {
		t.Errorf("expected READY, got %s", p.Status())
	}
	src, snk := p.Endpoints()
	if src.ID != 1 || snk.ID != 2 {
		t.Errorf("unexpected endpoints %d, %d", src.ID, snk.ID)
	}
}

func TestAddRejectsForeignComponents(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})

	other, err := h.comps.New(comp.Config{ID: 5, PipelineID: 2, Driver: "stub", Options: map[string]any{"name": "X"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Add(other); !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}

	h.add(p, 1, "stub", map[string]any{"name": "A"})
	dup, _ := h.comps.New(comp.Config{ID: 1, PipelineID: 1, Driver: "stub", Options: map[string]any{"name": "A2"}})
	if err := p.Add(dup); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestPrepareFormatMismatch(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	h.add(p, 1, "tone", map[string]any{"samples": []int{1, 2}})
	stereo := stream.Params{Rate: 48000, Channels: 2, Format: stream.FormatS16}
	d, err := h.comps.New(comp.Config{ID: 2, PipelineID: 1, Driver: "sink", Params: stereo})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Add(d); err != nil {
		t.Fatal(err)
	}
	h.connect(p, 1, 2, 1024)
	if err := p.Complete(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := p.Params(monoS16); err != nil {
		t.Fatal(err)
	}

	err = p.Prepare()
	if !errors.HasCode(err, errors.ErrCodeFormatMismatch) {
		t.Fatalf("expected FORMAT_MISMATCH, got %v", err)
	}
	if p.Status() != comp.StateReady {
		t.Errorf("expected READY after failed prepare, got %s", p.Status())
	}
}

func TestPrepareInsufficientBuffer(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	h.add(p, 1, "tone", map[string]any{"samples": []int{1, 2}})
	h.add(p, 2, "sink", nil)
	h.connect(p, 1, 2, monoS16.PeriodBytes(testFrames)-2)
	if err := p.Complete(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := p.Params(monoS16); err != nil {
		t.Fatal(err)
	}

	if err := p.Prepare(); !errors.HasCode(err, errors.ErrCodeInsufficientBuffer) {
		t.Fatalf("expected INSUFFICIENT_BUFFER, got %v", err)
	}
}

func TestTriggerOrder(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})

	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	want := []string{"A:PRE_START", "B:PRE_START", "C:PRE_START", "A:START", "B:START", "C:START"}
	if !reflect.DeepEqual(h.trace.calls, want) {
		t.Errorf("start order: expected %v, got %v", want, h.trace.calls)
	}
	if p.Status() != comp.StateActive {
		t.Errorf("expected ACTIVE, got %s", p.Status())
	}
	if !p.Task().Is(task.Queued) {
		t.Errorf("expected queued task, got %s", p.Task().State())
	}

	h.trace.calls = nil
	if err := p.Trigger(context.Background(), comp.CmdStop); err != nil {
		t.Fatalf("stop: %v", err)
	}
	want = []string{"C:STOP", "B:STOP", "A:STOP"}
	if !reflect.DeepEqual(h.trace.calls, want) {
		t.Errorf("stop order: expected %v, got %v", want, h.trace.calls)
	}
	if p.Status() != comp.StatePrepare {
		t.Errorf("expected PREPARE, got %s", p.Status())
	}
	if p.Task().Is(task.Queued) {
		t.Error("expected task to be cancelled")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})

	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.trace.calls = nil
	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(h.trace.calls) != 0 {
		t.Errorf("expected no component triggers, got %v", h.trace.calls)
	}
	if p.Status() != comp.StateActive {
		t.Errorf("expected ACTIVE, got %s", p.Status())
	}
}

func TestTriggerRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})
	h.stubs["B"].fail[comp.CmdStart] = errors.DataError("start refused")

	err := p.Trigger(context.Background(), comp.CmdStart)
	if !errors.HasCode(err, errors.ErrCodeDataError) {
		t.Fatalf("expected DATA_ERROR, got %v", err)
	}
	for _, call := range h.trace.calls {
		if call == "C:START" {
			t.Error("C must never see START")
		}
	}
	want := []comp.State{comp.StatePrepare, comp.StatePrepare, comp.StatePrepare}
	if got := states(p); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if p.Status() != comp.StatePrepare {
		t.Errorf("expected PREPARE, got %s", p.Status())
	}
	if p.Task().Is(task.Queued) {
		t.Error("task must not be scheduled after a failed start")
	}

	// A was started and then stopped by the rollback.
	wantA := []string{"A:PRE_START", "A:START", "A:STOP", "A:STOP"}
	var gotA []string
	for _, call := range h.trace.calls {
		if call[0] == 'A' {
			gotA = append(gotA, call)
		}
	}
	if !reflect.DeepEqual(gotA, wantA) {
		t.Errorf("expected %v, got %v", wantA, gotA)
	}
}

func TestTriggerRejectsIllegalCommands(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})

	tests := []struct {
		cmd  comp.Command
		code errors.ErrorCode
	}{
		{comp.CmdPause, errors.ErrCodeInvalidState},
		{comp.CmdRelease, errors.ErrCodeInvalidState},
		{comp.CmdPreRelease, errors.ErrCodeInvalidState},
		{comp.CmdPrepare, errors.ErrCodeInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			if err := p.Trigger(context.Background(), tc.cmd); !errors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}
	if err := p.Trigger(context.Background(), comp.CmdStop); err != nil {
		t.Errorf("stop on a prepared pipeline is a no-op, got %v", err)
	}
}

func TestPauseAndRelease(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})
	ctx := context.Background()

	if err := p.Trigger(ctx, comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	if err := p.Trigger(ctx, comp.CmdPause); err != nil {
		t.Fatal(err)
	}
	if p.Status() != comp.StatePaused || p.Task().Is(task.Queued) {
		t.Fatalf("expected PAUSED with no task, got %s/%s", p.Status(), p.Task().State())
	}

	h.trace.calls = nil
	if err := p.Trigger(ctx, comp.CmdRelease); err != nil {
		t.Fatal(err)
	}
	want := []string{"A:PRE_RELEASE", "B:PRE_RELEASE", "C:PRE_RELEASE", "A:RELEASE", "B:RELEASE", "C:RELEASE"}
	if !reflect.DeepEqual(h.trace.calls, want) {
		t.Errorf("expected %v, got %v", want, h.trace.calls)
	}
	if p.Status() != comp.StateActive || !p.Task().Is(task.Queued) {
		t.Errorf("expected ACTIVE with a queued task, got %s/%s", p.Status(), p.Task().State())
	}
}

func TestXrunRaisedOncePerThresholdCrossing(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{XrunThreshold: 2})
	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.stubs["B"].result = comp.CopyPartial

	for i := 0; i < 5; i++ {
		if _, err := p.Copy(); err != nil {
			t.Fatalf("copy %d: %v", i, err)
		}
	}
	if len(h.notifier.xruns) != 1 {
		t.Fatalf("expected one xrun after 5 starved periods, got %d", len(h.notifier.xruns))
	}
	if !p.Xrun() {
		t.Error("expected xrun flag")
	}

	h.stubs["B"].result = comp.CopyComplete
	if _, err := p.Copy(); err != nil {
		t.Fatal(err)
	}
	h.stubs["B"].result = comp.CopyPartial
	for i := 0; i < 2; i++ {
		if _, err := p.Copy(); err != nil {
			t.Fatal(err)
		}
	}
	if len(h.notifier.xruns) != 2 {
		t.Errorf("expected a second xrun after recovery of progress, got %d", len(h.notifier.xruns))
	}
}

func TestCopyErrorStopsTask(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})
	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.stubs["B"].err = fmt.Errorf("corrupt block")

	h.tick(1)
	if !p.Xrun() {
		t.Error("expected xrun flag after a copy error")
	}
	if len(h.notifier.xruns) != 1 {
		t.Errorf("expected one xrun notification, got %d", len(h.notifier.xruns))
	}
	if p.Task().Is(task.Queued) {
		t.Error("expected the task to complete")
	}
	if h.stubs["C"].copies != 0 {
		t.Errorf("C must not copy after B failed, got %d copies", h.stubs["C"].copies)
	}

	_, err := p.Copy()
	if !errors.HasCode(err, errors.ErrCodeDataError) {
		t.Errorf("expected DATA_ERROR, got %v", err)
	}
}

func TestXrunRecover(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{XrunThreshold: 1})
	ctx := context.Background()
	if err := p.Trigger(ctx, comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.stubs["A"].result = comp.CopyPartial
	if _, err := p.Copy(); err != nil {
		t.Fatal(err)
	}
	if !p.Xrun() {
		t.Fatal("expected xrun")
	}

	h.stubs["A"].result = comp.CopyComplete
	if err := p.XrunRecover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if p.Xrun() {
		t.Error("expected xrun flag cleared")
	}
	if p.Status() != comp.StateActive {
		t.Errorf("expected ACTIVE, got %s", p.Status())
	}
}

func TestTriggerDelayDefersStart(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{TriggerDelay: 2})

	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	if p.Status() != comp.StatePreActive {
		t.Fatalf("expected PRE_ACTIVE, got %s", p.Status())
	}
	want := []string{"A:PRE_START", "B:PRE_START", "C:PRE_START"}
	if !reflect.DeepEqual(h.trace.calls, want) {
		t.Fatalf("expected %v, got %v", want, h.trace.calls)
	}

	h.tick(2)
	if p.Status() != comp.StatePreActive {
		t.Fatalf("expected PRE_ACTIVE during the delay, got %s", p.Status())
	}
	h.tick(1)
	if p.Status() != comp.StateActive {
		t.Fatalf("expected ACTIVE after the delay, got %s", p.Status())
	}
	if got := h.trace.calls[len(h.trace.calls)-1]; got != "C:START" {
		t.Errorf("expected C:START last, got %s", got)
	}
	if !p.Task().Is(task.Queued) {
		t.Error("expected the task to keep running")
	}
}

func TestDeferredStartFailureNotifies(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{TriggerDelay: 1})
	h.stubs["C"].fail[comp.CmdStart] = errors.DataError("no clock")

	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.tick(2)

	if !reflect.DeepEqual(h.notifier.failures, []comp.Command{comp.CmdStart}) {
		t.Errorf("expected one START failure, got %v", h.notifier.failures)
	}
	want := []comp.State{comp.StatePreActive, comp.StatePreActive, comp.StatePreActive}
	if got := states(p); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if err := p.Trigger(context.Background(), comp.CmdReset); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if p.Status() != comp.StateReady {
		t.Errorf("expected READY, got %s", p.Status())
	}
}

func TestFreeRefusedWhileActive(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})
	ctx := context.Background()
	if err := p.Trigger(ctx, comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	if err := p.Free(); !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Fatalf("expected INVALID_STATE, got %v", err)
	}
	if err := p.Trigger(ctx, comp.CmdStop); err != nil {
		t.Fatal(err)
	}
	if err := p.Free(); err != nil {
		t.Fatalf("free: %v", err)
	}
	if len(p.Components()) != 0 {
		t.Error("expected no components after free")
	}
}

func TestToneToSinkEndToEnd(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	tone := h.add(p, 1, "tone", map[string]any{"samples": []int{100, -200, 300, -400, 500}})
	sink := h.add(p, 2, "sink", nil)
	h.connect(p, 1, 2, 4*monoS16.PeriodBytes(testFrames))
	if err := p.Complete(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := p.Params(monoS16); err != nil {
		t.Fatal(err)
	}
	if err := p.Prepare(); err != nil {
		t.Fatal(err)
	}
	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}

	const periods = 6
	h.tick(periods)

	pattern := tone.Ops().(*comp.Tone).Pattern()
	want := make([]byte, periods*monoS16.PeriodBytes(testFrames))
	for i := range want {
		want[i] = pattern[i%len(pattern)]
	}
	got := sink.Ops().(*comp.Sink).Accumulated()
	if !bytes.Equal(got, want) {
		t.Errorf("sink bytes differ:\n got %v\nwant %v", got, want)
	}
	if p.Xrun() {
		t.Error("unexpected xrun")
	}
}

func TestPosition(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(Config{})
	if _, err := p.Position(0); !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE before complete, got %v", err)
	}

	h.add(p, 1, "tone", map[string]any{"samples": []int{7}})
	h.add(p, 2, "sink", nil)
	h.connect(p, 1, 2, 4*monoS16.PeriodBytes(testFrames))
	for _, step := range []func() error{
		func() error { return p.Complete(1, 2) },
		func() error { return p.Params(monoS16) },
		p.Prepare,
		func() error { return p.Trigger(context.Background(), comp.CmdStart) },
	} {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	h.tick(5)

	tests := []struct {
		name   string
		compID uint32
		want   uint64
	}{
		{"sink endpoint", 0, 5 * testFrames},
		{"tone", 1, 5 * testFrames},
		{"sink", 2, 5 * testFrames},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := p.Position(tc.compID)
			if err != nil {
				t.Fatal(err)
			}
			if pos.Frames != tc.want || pos.PipelineID != p.ID || pos.Xrun {
				t.Errorf("expected %d frames, got %+v", tc.want, pos)
			}
		})
	}
	if _, err := p.Position(9); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for an unknown component, got %v", err)
	}

	if err := p.Trigger(context.Background(), comp.CmdStop); err != nil {
		t.Fatal(err)
	}
	if err := p.Trigger(context.Background(), comp.CmdReset); err != nil {
		t.Fatal(err)
	}
	if pos, err := p.Position(0); err != nil || pos.Frames != 0 {
		t.Errorf("expected position cleared by reset, got %+v %v", pos, err)
	}
}

func TestPositionWithoutReporters(t *testing.T) {
	h := newHarness(t)
	p := h.chain(Config{})
	if _, err := p.Position(0); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND when no component reports a position, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	h := newHarness(t)
	reg := NewRegistry()
	p := h.chain(Config{XrunThreshold: 1})

	if err := reg.Add(p); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(p); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
	if _, err := reg.Get(9); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if got := reg.OnCore(0); len(got) != 1 {
		t.Errorf("expected one pipeline on core 0, got %d", len(got))
	}
	if len(reg.Xruns()) != 0 {
		t.Error("expected no xruns")
	}

	if err := p.Trigger(context.Background(), comp.CmdStart); err != nil {
		t.Fatal(err)
	}
	h.stubs["A"].result = comp.CopyPartial
	if _, err := p.Copy(); err != nil {
		t.Fatal(err)
	}
	if got := reg.Xruns(); !reflect.DeepEqual(got, []uint32{1}) {
		t.Errorf("expected xrun on pipeline 1, got %v", got)
	}

	if err := reg.Remove(1); err != nil {
		t.Fatal(err)
	}
	if len(reg.All()) != 0 {
		t.Error("expected empty registry")
	}
}
