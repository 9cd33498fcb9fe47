package comp

import (
	"sync/atomic"

	"github.com/go-audio/audio"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// ToneOptions configures the test-pattern generator. Samples are encoded in
// the negotiated output format; Pattern is used verbatim.
type ToneOptions struct {
	Samples []int  `mapstructure:"samples"`
	Pattern []byte `mapstructure:"pattern"`
}

// Tone repeats a byte pattern, writing up to one period per copy.
type Tone struct {
	BaseOps
	opts    ToneOptions
	pattern []byte
	phase   int
	scratch []byte
	written atomic.Uint64
}

func newTone(cfg Config) (Ops, error) {
	var opts ToneOptions
	if err := DecodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	if len(opts.Samples) == 0 && len(opts.Pattern) == 0 {
		return nil, errors.InvalidArgument("options", "tone needs samples or pattern")
	}
	return &Tone{opts: opts}, nil
}

// Pattern returns the bytes the tone repeats once prepared.
func (t *Tone) Pattern() []byte { return t.pattern }

func (t *Tone) Prepare(d *Device) error {
	if len(d.Sinks) == 0 {
		return errors.Configuration("tone needs a sink buffer")
	}
	if len(t.opts.Pattern) > 0 {
		t.pattern = t.opts.Pattern
	} else {
		p := d.Params()
		t.pattern = make([]byte, len(t.opts.Samples)*p.SampleBytes())
		stream.Encode(p, &audio.IntBuffer{Format: p.AudioFormat(), Data: t.opts.Samples}, t.pattern)
	}
	t.phase = 0
	t.scratch = make([]byte, d.PeriodBytes())
	return nil
}

func (t *Tone) Copy(d *Device) (CopyResult, error) {
	period := d.PeriodBytes()
	n := period
	for _, sink := range d.Sinks {
		n = min(n, sink.Free())
	}
	if n == 0 {
		return CopyPartial, nil
	}

	out := t.scratch[:n]
	for i := range out {
		out[i] = t.pattern[(t.phase+i)%len(t.pattern)]
	}
	t.phase = (t.phase + n) % len(t.pattern)
	for _, sink := range d.Sinks {
		sink.Write(out)
	}
	t.written.Add(uint64(n))
	if n < period {
		return CopyPartial, nil
	}
	return CopyComplete, nil
}

func (t *Tone) Reset(*Device) {
	t.phase = 0
	t.written.Store(0)
}

// Attribute reports AttrPosition as the frames generated so far.
func (t *Tone) Attribute(d *Device, attr Attribute) (any, error) {
	if attr == AttrPosition {
		frame := d.Params().FrameBytes()
		if frame == 0 {
			return uint64(0), nil
		}
		return t.written.Load() / uint64(frame), nil
	}
	return t.BaseOps.Attribute(d, attr)
}
