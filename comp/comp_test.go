package comp

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

var monoS16 = stream.Params{Rate: 48000, Channels: 1, Format: stream.FormatS16}

const testFrames = 4

func mustNew(t *testing.T, reg *Registry, id uint32, driver string, opts map[string]any) *Device {
	t.Helper()
	d, err := reg.New(Config{ID: id, PipelineID: 1, Driver: driver, Options: opts})
	if err != nil {
		t.Fatalf("new %s: %v", driver, err)
	}
	d.PeriodFrames = testFrames
	return d
}

var nextBufferID uint32

func link(t *testing.T, from, to *Device) *buffer.Buffer {
	t.Helper()
	nextBufferID++
	b, err := buffer.New(nextBufferID, 4*monoS16.PeriodBytes(testFrames))
	if err != nil {
		t.Fatal(err)
	}
	from.AddSink(b)
	to.AddSource(b)
	return b
}

// activate negotiates params in order and walks the devices to Active.
func activate(t *testing.T, devs ...*Device) {
	t.Helper()
	for _, d := range devs {
		in := monoS16
		if len(d.Sources) > 0 {
			in = d.Sources[0].Params()
		}
		if _, err := d.SetParams(in); err != nil {
			t.Fatalf("params %s: %v", d, err)
		}
	}
	for _, cmd := range []Command{CmdPrepare, CmdPreStart, CmdStart} {
		for _, d := range devs {
			if err := d.Trigger(cmd); err != nil {
				t.Fatalf("%s %s: %v", cmd, d, err)
			}
		}
	}
}

func runPeriods(t *testing.T, n int, devs ...*Device) {
	t.Helper()
	for i := 0; i < n; i++ {
		for _, d := range devs {
			if _, err := d.Copy(); err != nil {
				t.Fatalf("copy %s: %v", d, err)
			}
		}
	}
}

func sinkOf(t *testing.T, d *Device) *Sink {
	t.Helper()
	s, ok := d.Ops().(*Sink)
	if !ok {
		t.Fatalf("%s is not a sink", d)
	}
	return s
}

func TestNextState(t *testing.T) {
	tests := []struct {
		cur  State
		cmd  Command
		want State
		code errors.ErrorCode
	}{
		{StateReady, CmdPrepare, StatePrepare, ""},
		{StatePrepare, CmdPreStart, StatePreActive, ""},
		{StatePreActive, CmdStart, StateActive, ""},
		{StateActive, CmdPause, StatePaused, ""},
		{StatePaused, CmdPreRelease, StatePreActive, ""},
		{StatePreActive, CmdRelease, StateActive, ""},
		{StateActive, CmdStop, StatePrepare, ""},
		{StatePaused, CmdStop, StatePrepare, ""},
		{StateActive, CmdReset, StateReady, ""},
		{StatePaused, CmdXrun, StateReady, ""},
		{StatePrepare, CmdStart, StatePrepare, errors.ErrCodeInvalidState},
		{StateReady, CmdPreStart, StateReady, errors.ErrCodeInvalidState},
		{StatePrepare, CmdPause, StatePrepare, errors.ErrCodeInvalidState},
		{StateActive, CmdPreRelease, StateActive, errors.ErrCodeInvalidState},
		{StateActive, CmdStart, StateActive, errors.ErrCodeAlreadySet},
		{StatePrepare, CmdStop, StatePrepare, errors.ErrCodeAlreadySet},
		{StateReady, CmdReset, StateReady, errors.ErrCodeAlreadySet},
		{StatePaused, CmdPause, StatePaused, errors.ErrCodeAlreadySet},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%s", tc.cur, tc.cmd), func(t *testing.T) {
			got, err := NextState(tc.cur, tc.cmd)
			if tc.code == "" && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tc.code != "" && !errors.HasCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAlreadySetStatus(t *testing.T) {
	_, err := NextState(StateActive, CmdStart)
	if !IsAlreadySet(err) || errors.Status(err) != 1 {
		t.Errorf("expected ALREADY_SET with status 1, got %v (%d)", err, errors.Status(err))
	}
}

func TestCommandHelpers(t *testing.T) {
	for _, s := range []string{"start", "PRE_START", "pre-release", " Stop "} {
		if _, err := ParseCommand(s); err != nil {
			t.Errorf("ParseCommand(%q): %v", s, err)
		}
	}
	if _, err := ParseCommand("launch"); !errors.HasCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
	if !CmdRelease.StartClass() || CmdPause.StartClass() || CmdReset.StartClass() {
		t.Error("unexpected start class")
	}
	if inv, ok := CmdPreStart.Inverse(); !ok || inv != CmdStop {
		t.Errorf("expected PRE_START inverse STOP, got %s", inv)
	}
	if _, ok := CmdXrun.Inverse(); ok {
		t.Error("XRUN has no inverse")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewBuiltinRegistry()
	if len(reg.Drivers()) != 6 {
		t.Fatalf("expected 6 builtin drivers, got %d", len(reg.Drivers()))
	}
	if err := reg.Register(NewDriver(ToneUUID, "tone2", newTone)); !errors.HasCode(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS for duplicate uuid, got %v", err)
	}

	d, err := reg.New(Config{ID: 1, PipelineID: 1, UUID: ToneUUID, Options: map[string]any{"pattern": []byte{1, 2}}})
	if err != nil {
		t.Fatal(err)
	}
	if d.Driver.Name() != "tone" || d.State() != StateReady {
		t.Errorf("unexpected device %s", d)
	}

	tests := []struct {
		name string
		cfg  Config
		code errors.ErrorCode
	}{
		{"unknown uuid", Config{ID: 1, PipelineID: 1, UUID: uuid.New()}, errors.ErrCodeNotFound},
		{"unknown name", Config{ID: 1, PipelineID: 1, Driver: "reverb"}, errors.ErrCodeNotFound},
		{"missing id", Config{PipelineID: 1, Driver: "sink"}, errors.ErrCodeInvalidArgument},
		{"bad options", Config{ID: 1, PipelineID: 1, Driver: "dai", Options: map[string]any{"direction": "sideways"}}, errors.ErrCodeInvalidArgument},
		{"unknown option", Config{ID: 1, PipelineID: 1, Driver: "copier", Options: map[string]any{"x": 1}}, errors.ErrCodeInvalidArgument},
		{"tone without pattern", Config{ID: 1, PipelineID: 1, Driver: "tone"}, errors.ErrCodeInvalidArgument},
		{"bad params", Config{ID: 1, PipelineID: 1, Driver: "sink", Params: stream.Params{Rate: 1, Channels: 1, Format: "u8"}}, errors.ErrCodeInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := reg.New(tc.cfg); !errors.HasCode(err, tc.code) {
				t.Errorf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

type rawAndSamples struct{ Copier }

func (rawAndSamples) ProcessAudioStream([]*StreamView, *StreamView) error { return nil }

func TestModuleAdapterRequiresExactlyOneInterface(t *testing.T) {
	tests := []struct {
		name    string
		module  any
		wantErr bool
	}{
		{"none", struct{}{}, true},
		{"two", rawAndSamples{}, true},
		{"raw", &Copier{}, false},
		{"stream", &Volume{}, false},
		{"samples", &Mixer{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModuleAdapter(tc.module)
			if tc.wantErr && !errors.HasCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("expected CONFIGURATION, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestStartRefusedBeforePrepare(t *testing.T) {
	reg := NewBuiltinRegistry()
	d := mustNew(t, reg, 1, "tone", map[string]any{"pattern": []byte{1}})
	if err := d.Trigger(CmdStart); !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected INVALID_STATE, got %v", err)
	}
	if _, err := d.Copy(); !errors.HasCode(err, errors.ErrCodeInvalidState) {
		t.Errorf("expected copy refused outside ACTIVE, got %v", err)
	}
}

type failingOps struct {
	BaseOps
	fail     Command
	received []Command
}

func (f *failingOps) Trigger(_ *Device, cmd Command) error {
	f.received = append(f.received, cmd)
	if cmd == f.fail {
		return errors.Internal(fmt.Errorf("%s failed", cmd))
	}
	return nil
}

func (f *failingOps) Copy(*Device) (CopyResult, error) { return CopyComplete, nil }

func TestTriggerFailureKeepsStateAndRollback(t *testing.T) {
	ops := &failingOps{fail: CmdStart}
	reg := NewRegistry()
	_ = reg.Register(NewDriver(uuid.New(), "stub", func(Config) (Ops, error) { return ops, nil }))
	d, err := reg.New(Config{ID: 9, PipelineID: 1, Driver: "stub"})
	if err != nil {
		t.Fatal(err)
	}
	_ = d.Trigger(CmdPrepare)
	if err := d.Trigger(CmdPreStart); err != nil {
		t.Fatal(err)
	}
	if err := d.Trigger(CmdStart); err == nil || d.State() != StatePreActive {
		t.Fatalf("expected failed start to keep PRE_ACTIVE, got %s err=%v", d.State(), err)
	}
	d.Rollback(CmdPreStart, StatePrepare)
	if d.State() != StatePrepare {
		t.Errorf("expected rollback to PREPARE, got %s", d.State())
	}
	if last := ops.received[len(ops.received)-1]; last != CmdStop {
		t.Errorf("expected inverse STOP delivered, got %s", last)
	}
}

func TestToneToSink(t *testing.T) {
	reg := NewBuiltinRegistry()
	pattern := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tone := mustNew(t, reg, 1, "tone", map[string]any{"pattern": pattern})
	sink := mustNew(t, reg, 2, "sink", nil)
	link(t, tone, sink)
	activate(t, tone, sink)

	runPeriods(t, 3, tone, sink)

	want := bytes.Repeat(pattern, 3)
	if got := sinkOf(t, sink).Accumulated(); !bytes.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	samples := sinkOf(t, sink).Samples()
	if samples.Format.SampleRate != 48000 || len(samples.Data) != 12 || samples.Data[0] != 0x0201 {
		t.Errorf("unexpected sample view %+v", samples)
	}
}

func TestToneSamplesThroughVolume(t *testing.T) {
	reg := NewBuiltinRegistry()
	tone := mustNew(t, reg, 1, "tone", map[string]any{"samples": []int{1000, -1000, 32767, -32768}})
	vol := mustNew(t, reg, 2, "volume", map[string]any{"gain": 0.5})
	sink := mustNew(t, reg, 3, "sink", nil)
	link(t, tone, vol)
	link(t, vol, sink)
	activate(t, tone, vol, sink)

	runPeriods(t, 1, tone, vol, sink)

	want := []int{500, -500, 16383, -16384}
	got := sinkOf(t, sink).Samples().Data
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	coef, shift := vol.Ops().(*ModuleAdapter).Module().(*Volume).Coefficient()
	if coef != 16384 || shift != 15 {
		t.Errorf("expected Q1.15 coefficient 16384, got %d (shift %d)", coef, shift)
	}
}

func TestMixerSaturates(t *testing.T) {
	reg := NewBuiltinRegistry()
	a := mustNew(t, reg, 1, "tone", map[string]any{"samples": []int{30000, -30000, 1, 0}})
	b := mustNew(t, reg, 2, "tone", map[string]any{"samples": []int{10000, -10000, 2, 0}})
	mix := mustNew(t, reg, 3, "mixer", nil)
	sink := mustNew(t, reg, 4, "sink", nil)
	link(t, a, mix)
	link(t, b, mix)
	link(t, mix, sink)
	activate(t, a, b, mix, sink)

	runPeriods(t, 1, a, b, mix, sink)

	want := []int{32767, -32768, 3, 0}
	if got := sinkOf(t, sink).Samples().Data; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCopierPassesBytes(t *testing.T) {
	reg := NewBuiltinRegistry()
	pattern := []byte{9, 8, 7, 6, 5, 4, 3, 2}
	tone := mustNew(t, reg, 1, "tone", map[string]any{"pattern": pattern})
	cp := mustNew(t, reg, 2, "copier", nil)
	sink := mustNew(t, reg, 3, "sink", nil)
	link(t, tone, cp)
	link(t, cp, sink)
	activate(t, tone, cp, sink)

	runPeriods(t, 2, tone, cp, sink)

	if got := sinkOf(t, sink).Accumulated(); !bytes.Equal(got, bytes.Repeat(pattern, 2)) {
		t.Errorf("unexpected bytes %v", got)
	}
}

func TestModuleAdapterPartialWhenStarved(t *testing.T) {
	reg := NewBuiltinRegistry()
	tone := mustNew(t, reg, 1, "tone", map[string]any{"pattern": []byte{1, 2}})
	cp := mustNew(t, reg, 2, "copier", nil)
	sink := mustNew(t, reg, 3, "sink", nil)
	link(t, tone, cp)
	link(t, cp, sink)
	activate(t, tone, cp, sink)

	if res, err := cp.Copy(); err != nil || res != CopyPartial {
		t.Errorf("expected partial copy on empty source, got %s %v", res, err)
	}
}

func TestDAIPosition(t *testing.T) {
	reg := NewBuiltinRegistry()
	tone := mustNew(t, reg, 1, "tone", map[string]any{"pattern": []byte{0, 1}})
	dai := mustNew(t, reg, 2, "dai", map[string]any{"direction": "playback"})
	link(t, tone, dai)
	activate(t, tone, dai)

	runPeriods(t, 3, tone, dai)

	pos, err := dai.Attribute(AttrPosition)
	if err != nil {
		t.Fatal(err)
	}
	if pos.(uint64) != 3*testFrames {
		t.Errorf("expected %d frames, got %v", 3*testFrames, pos)
	}
	if _, err := dai.Attribute("latency"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for unknown attribute, got %v", err)
	}
}

func TestDAICaptureProducesSilence(t *testing.T) {
	reg := NewBuiltinRegistry()
	dai := mustNew(t, reg, 1, "dai", map[string]any{"direction": "capture"})
	sink := mustNew(t, reg, 2, "sink", nil)
	link(t, dai, sink)
	activate(t, dai, sink)

	runPeriods(t, 2, dai, sink)

	got := sinkOf(t, sink).Accumulated()
	if !bytes.Equal(got, make([]byte, 2*monoS16.PeriodBytes(testFrames))) {
		t.Errorf("expected two periods of silence, got %v", got)
	}
}

func TestResetReturnsToReady(t *testing.T) {
	reg := NewBuiltinRegistry()
	tone := mustNew(t, reg, 1, "tone", map[string]any{"pattern": []byte{1, 2}})
	sink := mustNew(t, reg, 2, "sink", nil)
	link(t, tone, sink)
	activate(t, tone, sink)
	runPeriods(t, 1, tone, sink)

	for _, d := range []*Device{sink, tone} {
		if err := d.Trigger(CmdReset); err != nil {
			t.Fatal(err)
		}
		if d.State() != StateReady {
			t.Errorf("expected READY, got %s", d.State())
		}
	}
	if len(sinkOf(t, sink).Accumulated()) != 0 {
		t.Error("expected reset to drop accumulated data")
	}
}

func TestToneAndSinkPosition(t *testing.T) {
	reg := NewBuiltinRegistry()
	tone := mustNew(t, reg, 1, "tone", map[string]any{"samples": []int{5, -5}})
	sink := mustNew(t, reg, 2, "sink", nil)
	link(t, tone, sink)
	activate(t, tone, sink)

	runPeriods(t, 3, tone, sink)

	for _, d := range []*Device{tone, sink} {
		pos, err := d.Attribute(AttrPosition)
		if err != nil {
			t.Fatalf("%s: %v", d, err)
		}
		if pos.(uint64) != 3*testFrames {
			t.Errorf("%s: expected %d frames, got %v", d, 3*testFrames, pos)
		}
	}

	tone.Reset()
	if pos, _ := tone.Attribute(AttrPosition); pos.(uint64) != 0 {
		t.Errorf("expected tone position cleared by reset, got %v", pos)
	}
}

func TestCopyReusesScratchBuffers(t *testing.T) {
	tests := []struct {
		driver string
		opts   map[string]any
	}{
		{"volume", map[string]any{"gain": 0.25}},
		{"mixer", nil},
		{"copier", nil},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			reg := NewBuiltinRegistry()
			tone := mustNew(t, reg, 1, "tone", map[string]any{"samples": []int{100, -100, 7}})
			mid := mustNew(t, reg, 2, tc.driver, tc.opts)
			dai := mustNew(t, reg, 3, "dai", map[string]any{"direction": "playback"})
			link(t, tone, mid)
			link(t, mid, dai)
			activate(t, tone, mid, dai)

			allocs := testing.AllocsPerRun(50, func() {
				runPeriods(t, 1, tone, mid, dai)
			})
			if allocs != 0 {
				t.Errorf("expected no allocations per period, got %.1f", allocs)
			}
		})
	}
}
