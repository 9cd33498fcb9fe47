package comp

import "github.com/go-audio/audio"

// Mixer sums every source with saturation.
type Mixer struct{}

func newMixer(cfg Config) (Ops, error) {
	if err := DecodeOptions(cfg, &struct{}{}); err != nil {
		return nil, err
	}
	return NewModuleAdapter(&Mixer{})
}

func (m *Mixer) Process(in []*audio.IntBuffer, out *audio.IntBuffer) error {
	lo, hi := sampleRange(out.SourceBitDepth)
	for i := range out.Data {
		var sum int64
		for _, buf := range in {
			if i < len(buf.Data) {
				sum += int64(buf.Data[i])
			}
		}
		out.Data[i] = int(max(lo, min(hi, sum)))
	}
	return nil
}

func sampleRange(bits int) (int64, int64) {
	if bits <= 0 || bits > 32 {
		bits = 32
	}
	return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
}
