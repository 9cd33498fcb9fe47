package comp

import (
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// SinkOptions limits how much the accumulator keeps. Zero keeps everything.
type SinkOptions struct {
	Limit int `mapstructure:"limit" validate:"gte=0"`
}

// Sink drains up to one period per copy into memory.
type Sink struct {
	BaseOps
	limit   int
	scratch []byte
	drained atomic.Uint64

	mu     sync.Mutex
	data   []byte
	params stream.Params
}

func newSink(cfg Config) (Ops, error) {
	var opts SinkOptions
	if err := DecodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return &Sink{limit: opts.Limit}, nil
}

func (s *Sink) Prepare(d *Device) error {
	if len(d.Sources) == 0 {
		return errors.Configuration("sink needs a source buffer")
	}
	s.mu.Lock()
	s.params = d.InputParams()
	s.mu.Unlock()
	s.scratch = make([]byte, d.Sources[0].Params().PeriodBytes(d.PeriodFrames))
	return nil
}

func (s *Sink) Copy(d *Device) (CopyResult, error) {
	src := d.Sources[0]
	period := src.Params().PeriodBytes(d.PeriodFrames)
	n := min(period, src.Available())
	if n == 0 {
		return CopyPartial, nil
	}

	chunk := s.scratch[:n]
	src.Read(chunk)
	s.mu.Lock()
	s.data = append(s.data, chunk...)
	if s.limit > 0 && len(s.data) > s.limit {
		s.data = s.data[len(s.data)-s.limit:]
	}
	s.mu.Unlock()
	s.drained.Add(uint64(n))

	if n < period {
		return CopyPartial, nil
	}
	return CopyComplete, nil
}

// Accumulated returns a copy of everything drained so far.
func (s *Sink) Accumulated() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Samples decodes the accumulated bytes in the input format.
func (s *Sink) Samples() *audio.IntBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stream.Decode(s.params, s.data)
}

// Attribute reports AttrPosition as the frames drained so far.
func (s *Sink) Attribute(d *Device, attr Attribute) (any, error) {
	if attr == AttrPosition {
		s.mu.Lock()
		frame := s.params.FrameBytes()
		s.mu.Unlock()
		if frame == 0 {
			return uint64(0), nil
		}
		return s.drained.Load() / uint64(frame), nil
	}
	return s.BaseOps.Attribute(d, attr)
}

func (s *Sink) Reset(*Device) {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	s.drained.Store(0)
}

func (s *Sink) Free(*Device) { s.Reset(nil) }
