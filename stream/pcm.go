package stream

import (
	"encoding/binary"
	"math"

	"github.com/go-audio/audio"
)

// Decode converts interleaved little-endian PCM into an IntBuffer. Trailing
// bytes that do not form a whole sample are ignored. f32 samples are scaled
// to the 32-bit integer range.
func Decode(p Params, b []byte) *audio.IntBuffer {
	buf := &audio.IntBuffer{}
	DecodeInto(p, b, buf)
	return buf
}

// DecodeInto is Decode into buf, reusing the capacity of buf.Data.
func DecodeInto(p Params, b []byte, buf *audio.IntBuffer) {
	buf.Format = p.AudioFormat()
	buf.SourceBitDepth = p.Format.ValidBits()
	size := p.SampleBytes()
	if size == 0 {
		buf.Data = buf.Data[:0]
		return
	}
	n := len(b) / size
	if cap(buf.Data) < n {
		buf.Data = make([]int, n)
	}
	buf.Data = buf.Data[:n]
	for i := 0; i < n; i++ {
		buf.Data[i] = decodeSample(p.Format, b[i*size:])
	}
}

// Encode writes the samples of buf into dst as interleaved little-endian
// PCM of format p, saturating to the format's range. It returns the number
// of bytes written.
func Encode(p Params, buf *audio.IntBuffer, dst []byte) int {
	size := p.SampleBytes()
	if size == 0 || buf == nil {
		return 0
	}
	n := len(buf.Data)
	if room := len(dst) / size; n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		encodeSample(p.Format, dst[i*size:], buf.Data[i])
	}
	return n * size
}

// Clamp saturates v to the range of format f.
func Clamp(f SampleFormat, v int64) int {
	lo, hi := Range(f)
	if v < lo {
		return int(lo)
	}
	if v > hi {
		return int(hi)
	}
	return int(v)
}

// Range returns the smallest and largest sample value of format f.
func Range(f SampleFormat) (int64, int64) {
	switch f {
	case FormatS16:
		return math.MinInt16, math.MaxInt16
	case FormatS24:
		return -1 << 23, 1<<23 - 1
	default:
		return math.MinInt32, math.MaxInt32
	}
}

func decodeSample(f SampleFormat, b []byte) int {
	switch f {
	case FormatS16:
		return int(int16(binary.LittleEndian.Uint16(b)))
	case FormatS24:
		// sign-extend the low 24 bits of the container
		v := int32(binary.LittleEndian.Uint32(b) << 8)
		return int(v >> 8)
	case FormatF32:
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		return Clamp(FormatS32, int64(v*math.MaxInt32))
	default:
		return int(int32(binary.LittleEndian.Uint32(b)))
	}
}

func encodeSample(f SampleFormat, b []byte, v int) {
	switch f {
	case FormatS16:
		binary.LittleEndian.PutUint16(b, uint16(int16(Clamp(f, int64(v)))))
	case FormatS24:
		binary.LittleEndian.PutUint32(b, uint32(int32(Clamp(f, int64(v))))&0x00ffffff)
	case FormatF32:
		s := float32(float64(Clamp(FormatS32, int64(v))) / math.MaxInt32)
		binary.LittleEndian.PutUint32(b, math.Float32bits(s))
	default:
		binary.LittleEndian.PutUint32(b, uint32(int32(Clamp(f, int64(v)))))
	}
}

// SampleAt decodes sample i of interleaved PCM b.
func SampleAt(f SampleFormat, b []byte, i int) int {
	size := f.ContainerBytes()
	return decodeSample(f, b[i*size:])
}

// PutSampleAt encodes v as sample i of interleaved PCM b, saturating.
func PutSampleAt(f SampleFormat, b []byte, i int, v int) {
	size := f.ContainerBytes()
	encodeSample(f, b[i*size:], v)
}
