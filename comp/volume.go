package comp

import (
	"fmt"
	"math"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// VolumeOptions sets a linear gain in [0, 1].
type VolumeOptions struct {
	Gain float64 `mapstructure:"gain" validate:"gte=0,lte=1"`
}

// Volume applies a fixed-point gain: Q1.15 for 16-bit streams, Q1.31 for
// 24 and 32-bit streams.
type Volume struct {
	gain  float64
	shift uint
	coef  int64
}

func newVolume(cfg Config) (Ops, error) {
	opts := VolumeOptions{Gain: 1}
	if err := DecodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return NewModuleAdapter(&Volume{gain: opts.Gain})
}

// Coefficient returns the fixed-point gain and its fractional bits.
func (v *Volume) Coefficient() (int64, uint) { return v.coef, v.shift }

func (v *Volume) PrepareModule(in, out stream.Params, _ int) error {
	if in != out {
		return errors.Configuration(fmt.Sprintf("volume cannot convert %s to %s", in, out))
	}
	switch in.Format {
	case stream.FormatS16:
		v.shift = 15
	case stream.FormatS24, stream.FormatS32:
		v.shift = 31
	default:
		return errors.Configuration(fmt.Sprintf("volume does not support %s", in.Format))
	}
	v.coef = int64(math.Round(v.gain * float64(int64(1)<<v.shift)))
	return nil
}

func (v *Volume) ProcessAudioStream(in []*StreamView, out *StreamView) error {
	src := in[0]
	for i := 0; i < src.Samples(); i++ {
		s := int64(src.Sample(i))
		out.SetSample(i, int((s*v.coef)>>v.shift))
	}
	return nil
}
