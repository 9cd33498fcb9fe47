package stream

import (
	"fmt"

	"github.com/go-audio/audio"

	"github.com/kbukum/dspcore/errors"
)

// SampleFormat is a PCM container format.
type SampleFormat string

const (
	FormatS16 SampleFormat = "s16"
	// FormatS24 is 24 valid bits in a 32-bit little-endian container.
	FormatS24 SampleFormat = "s24"
	FormatS32 SampleFormat = "s32"
	FormatF32 SampleFormat = "f32"
)

// ContainerBytes returns the bytes one sample occupies, or 0 if unknown.
func (f SampleFormat) ContainerBytes() int {
	switch f {
	case FormatS16:
		return 2
	case FormatS24, FormatS32, FormatF32:
		return 4
	default:
		return 0
	}
}

// ValidBits returns the number of significant bits per sample.
func (f SampleFormat) ValidBits() int {
	switch f {
	case FormatS16:
		return 16
	case FormatS24:
		return 24
	case FormatS32, FormatF32:
		return 32
	default:
		return 0
	}
}

// Params is the negotiated format of a stream.
type Params struct {
	Rate     int          `json:"rate" yaml:"rate" mapstructure:"rate" validate:"required,gt=0"`
	Channels int          `json:"channels" yaml:"channels" mapstructure:"channels" validate:"required,gt=0,lte=8"`
	Format   SampleFormat `json:"format" yaml:"format" mapstructure:"format" validate:"required,sample_format"`
}

// IsZero reports whether p is unset.
func (p Params) IsZero() bool {
	return p == Params{}
}

// Validate checks that p describes a usable stream.
func (p Params) Validate() error {
	if p.Rate <= 0 {
		return errors.InvalidArgument("rate", fmt.Sprintf("must be positive, got %d", p.Rate))
	}
	if p.Channels <= 0 {
		return errors.InvalidArgument("channels", fmt.Sprintf("must be positive, got %d", p.Channels))
	}
	if p.Format.ContainerBytes() == 0 {
		return errors.InvalidArgument("format", fmt.Sprintf("unknown sample format %q", p.Format))
	}
	return nil
}

// SampleBytes is the size of one sample in bytes.
func (p Params) SampleBytes() int {
	return p.Format.ContainerBytes()
}

// FrameBytes is the size of one frame (one sample per channel).
func (p Params) FrameBytes() int {
	return p.SampleBytes() * p.Channels
}

// PeriodBytes is the size of frames frames.
func (p Params) PeriodBytes(frames int) int {
	return p.FrameBytes() * frames
}

// AudioFormat returns the go-audio view of p.
func (p Params) AudioFormat() *audio.Format {
	return &audio.Format{NumChannels: p.Channels, SampleRate: p.Rate}
}

func (p Params) String() string {
	if p.IsZero() {
		return "unset"
	}
	return fmt.Sprintf("%dHz/%dch/%s", p.Rate, p.Channels, p.Format)
}
