package comp

import (
	"sync/atomic"

	"github.com/kbukum/dspcore/errors"
)

// DAI directions.
const (
	DirectionPlayback = "playback"
	DirectionCapture  = "capture"
)

// DAIOptions selects the endpoint direction.
type DAIOptions struct {
	Direction string `mapstructure:"direction" validate:"required,oneof=playback capture"`
	Index     int    `mapstructure:"index" validate:"gte=0"`
}

// DAI simulates an audio interface endpoint. Playback consumes one period
// per copy; capture produces one period of silence.
type DAI struct {
	BaseOps
	opts    DAIOptions
	frames  atomic.Uint64
	silence []byte
}

func newDAI(cfg Config) (Ops, error) {
	opts := DAIOptions{Direction: DirectionPlayback}
	if err := DecodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return &DAI{opts: opts}, nil
}

// Direction returns the configured direction.
func (a *DAI) Direction() string { return a.opts.Direction }

func (a *DAI) Prepare(d *Device) error {
	if a.opts.Direction == DirectionPlayback {
		if len(d.Sources) == 0 {
			return errors.Configuration("playback dai needs a source buffer")
		}
		return nil
	}
	if len(d.Sinks) == 0 {
		return errors.Configuration("capture dai needs a sink buffer")
	}
	a.silence = make([]byte, d.PeriodBytes())
	return nil
}

func (a *DAI) Copy(d *Device) (CopyResult, error) {
	if a.opts.Direction == DirectionPlayback {
		return a.playback(d)
	}
	return a.capture(d)
}

func (a *DAI) playback(d *Device) (CopyResult, error) {
	src := d.Sources[0]
	frame := src.Params().FrameBytes()
	period := d.PeriodFrames * frame
	n := min(period, src.Available())
	n -= n % frame
	if n == 0 {
		return CopyPartial, nil
	}
	if err := src.Release(n); err != nil {
		return CopyPartial, errors.DataError(err.Error()).WithCause(err)
	}
	a.frames.Add(uint64(n / frame))
	if n < period {
		return CopyPartial, nil
	}
	return CopyComplete, nil
}

func (a *DAI) capture(d *Device) (CopyResult, error) {
	frame := d.Params().FrameBytes()
	n := len(a.silence)
	for _, sink := range d.Sinks {
		n = min(n, sink.Free())
	}
	n -= n % frame
	if n == 0 {
		return CopyPartial, nil
	}
	for _, sink := range d.Sinks {
		sink.Write(a.silence[:n])
	}
	a.frames.Add(uint64(n / frame))
	if n < len(a.silence) {
		return CopyPartial, nil
	}
	return CopyComplete, nil
}

func (a *DAI) Reset(*Device) { a.frames.Store(0) }

func (a *DAI) Attribute(d *Device, attr Attribute) (any, error) {
	if attr == AttrPosition {
		return a.frames.Load(), nil
	}
	return a.BaseOps.Attribute(d, attr)
}
