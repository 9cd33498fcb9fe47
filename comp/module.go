package comp

import (
	"fmt"

	"github.com/go-audio/audio"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// SampleProcessor processes decoded sample buffers. Every input holds the
// same number of frames and out must receive that many.
type SampleProcessor interface {
	Process(in []*audio.IntBuffer, out *audio.IntBuffer) error
}

// StreamProcessor processes interleaved PCM views in place of decoding.
type StreamProcessor interface {
	ProcessAudioStream(in []*StreamView, out *StreamView) error
}

// RawProcessor processes raw bytes. It returns the bytes written to out.
type RawProcessor interface {
	ProcessRawData(in [][]byte, out []byte) (int, error)
}

// ModulePreparer is implemented by modules that need the negotiated format.
type ModulePreparer interface {
	PrepareModule(in, out stream.Params, frames int) error
}

// ModuleResetter is implemented by modules with stream state.
type ModuleResetter interface {
	ResetModule()
}

// ModuleParams is implemented by modules whose output format differs from
// their input.
type ModuleParams interface {
	OutputParams(in stream.Params) (stream.Params, error)
}

// StreamView is a window of interleaved PCM.
type StreamView struct {
	Params stream.Params
	Frames int
	Data   []byte
}

// Samples is the number of samples in the view.
func (v *StreamView) Samples() int { return v.Frames * v.Params.Channels }

// Sample returns sample i.
func (v *StreamView) Sample(i int) int { return stream.SampleAt(v.Params.Format, v.Data, i) }

// SetSample stores sample i, saturating to the format range.
func (v *StreamView) SetSample(i, s int) { stream.PutSampleAt(v.Params.Format, v.Data, i, s) }

type processKind int

const (
	kindSamples processKind = iota
	kindStream
	kindRaw
)

// ModuleAdapter turns a processing module into component Ops. It pulls one
// period from every source, runs the module and pushes the result to every
// sink.
type ModuleAdapter struct {
	BaseOps
	module any
	kind   processKind

	in      [][]byte
	out     []byte
	inViews []*StreamView

	// per-period views into in, reused by every copy
	rawIn   [][]byte
	inBufs  []*audio.IntBuffer
	outBuf  *audio.IntBuffer
	outView *StreamView
}

// NewModuleAdapter wraps m, which must implement exactly one of
// SampleProcessor, StreamProcessor or RawProcessor.
func NewModuleAdapter(m any) (*ModuleAdapter, error) {
	var kinds []processKind
	if _, ok := m.(SampleProcessor); ok {
		kinds = append(kinds, kindSamples)
	}
	if _, ok := m.(StreamProcessor); ok {
		kinds = append(kinds, kindStream)
	}
	if _, ok := m.(RawProcessor); ok {
		kinds = append(kinds, kindRaw)
	}
	if len(kinds) != 1 {
		return nil, errors.Configuration(fmt.Sprintf(
			"module %T must implement exactly one processing interface, found %d", m, len(kinds)))
	}
	return &ModuleAdapter{module: m, kind: kinds[0]}, nil
}

// Module returns the wrapped module.
func (a *ModuleAdapter) Module() any { return a.module }

func (a *ModuleAdapter) Params(d *Device, in stream.Params) (stream.Params, error) {
	if mp, ok := a.module.(ModuleParams); ok {
		return mp.OutputParams(in)
	}
	return in, nil
}

func (a *ModuleAdapter) Prepare(d *Device) error {
	if len(d.Sources) == 0 || len(d.Sinks) == 0 {
		return errors.Configuration(fmt.Sprintf("component %d needs at least one source and one sink", d.ID))
	}
	if d.PeriodFrames <= 0 {
		return errors.Configuration(fmt.Sprintf("component %d has no period", d.ID))
	}
	in := d.InputParams()
	if mp, ok := a.module.(ModulePreparer); ok {
		if err := mp.PrepareModule(in, d.Params(), d.PeriodFrames); err != nil {
			return err
		}
	}

	a.in = make([][]byte, len(d.Sources))
	a.inViews = make([]*StreamView, len(d.Sources))
	for i, src := range d.Sources {
		a.in[i] = make([]byte, src.Params().PeriodBytes(d.PeriodFrames))
		a.inViews[i] = &StreamView{Params: src.Params()}
	}
	a.out = make([]byte, d.PeriodBytes())
	a.rawIn = make([][]byte, len(d.Sources))
	a.inBufs = make([]*audio.IntBuffer, len(d.Sources))
	for i := range a.inBufs {
		a.inBufs[i] = &audio.IntBuffer{Data: make([]int, 0, d.PeriodFrames*d.Sources[i].Params().Channels)}
	}
	a.outBuf = &audio.IntBuffer{Data: make([]int, 0, d.PeriodFrames*d.Params().Channels)}
	a.outView = &StreamView{}
	return nil
}

func (a *ModuleAdapter) Copy(d *Device) (CopyResult, error) {
	frames := d.PeriodFrames
	for _, src := range d.Sources {
		frames = min(frames, src.Available()/src.Params().FrameBytes())
	}
	outFrame := d.Params().FrameBytes()
	for _, sink := range d.Sinks {
		frames = min(frames, sink.Free()/outFrame)
	}
	if frames == 0 {
		return CopyPartial, nil
	}

	for i, src := range d.Sources {
		n := frames * src.Params().FrameBytes()
		src.Read(a.in[i][:n])
	}
	outBytes := frames * outFrame
	out := a.out[:outBytes]

	n, err := a.process(d, frames, out)
	if err != nil {
		return CopyPartial, err
	}
	for _, sink := range d.Sinks {
		sink.Write(out[:n])
	}
	if frames < d.PeriodFrames {
		return CopyPartial, nil
	}
	return CopyComplete, nil
}

func (a *ModuleAdapter) process(d *Device, frames int, dst []byte) (int, error) {
	switch a.kind {
	case kindSamples:
		for i, src := range d.Sources {
			stream.DecodeInto(src.Params(), a.in[i][:frames*src.Params().FrameBytes()], a.inBufs[i])
		}
		out := a.outBuf
		out.Format = d.Params().AudioFormat()
		out.SourceBitDepth = d.Params().Format.ValidBits()
		out.Data = out.Data[:frames*d.Params().Channels]
		clear(out.Data)
		if err := a.module.(SampleProcessor).Process(a.inBufs, out); err != nil {
			return 0, asDataError(err)
		}
		return stream.Encode(d.Params(), out, dst), nil

	case kindStream:
		for i, src := range d.Sources {
			v := a.inViews[i]
			v.Frames = frames
			v.Data = a.in[i][:frames*src.Params().FrameBytes()]
		}
		ov := a.outView
		ov.Params, ov.Frames, ov.Data = d.Params(), frames, dst
		if err := a.module.(StreamProcessor).ProcessAudioStream(a.inViews, ov); err != nil {
			return 0, asDataError(err)
		}
		return len(dst), nil

	default:
		for i, src := range d.Sources {
			a.rawIn[i] = a.in[i][:frames*src.Params().FrameBytes()]
		}
		n, err := a.module.(RawProcessor).ProcessRawData(a.rawIn, dst)
		if err != nil {
			return 0, asDataError(err)
		}
		if n < 0 || n > len(dst) {
			return 0, errors.DataError(fmt.Sprintf("module wrote %d bytes into %d", n, len(dst)))
		}
		return n, nil
	}
}

func (a *ModuleAdapter) Reset(*Device) {
	if mr, ok := a.module.(ModuleResetter); ok {
		mr.ResetModule()
	}
}

func (a *ModuleAdapter) Free(*Device) {
	a.in, a.out, a.inViews = nil, nil, nil
	a.rawIn, a.inBufs, a.outBuf, a.outView = nil, nil, nil, nil
}

// asDataError keeps AppErrors and turns anything else into a DataError.
func asDataError(err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	return errors.DataError(err.Error()).WithCause(err)
}
