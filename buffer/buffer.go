package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/stream"
)

// MaxSize bounds a single allocation.
const MaxSize = 16 << 20

// Flags describe how the pipeline treats starvation on a buffer.
type Flags uint32

const (
	// FlagUnderrunPermitted lets the consumer read less than a period.
	FlagUnderrunPermitted Flags = 1 << iota
	// FlagOverrunPermitted lets the producer drop data it cannot commit.
	FlagOverrunPermitted
)

// Buffer is a single-producer single-consumer byte ring.
type Buffer struct {
	ID       uint32
	Producer uint32
	Consumer uint32
	Flags    Flags

	params   stream.Params
	data     []byte
	produced atomic.Uint64
	consumed atomic.Uint64
}

// New allocates a buffer of size bytes. A size of zero returns
// InvalidArgument.
func New(id uint32, size int) (*Buffer, error) {
	if size <= 0 {
		return nil, errors.InvalidArgument("size", fmt.Sprintf("buffer size must be positive, got %d", size))
	}
	if size > MaxSize {
		return nil, errors.AllocationFailed("buffer", size)
	}
	return &Buffer{ID: id, data: make([]byte, size)}, nil
}

// NewRange allocates the largest buffer that is a multiple of minimum, no
// larger than preferred and within limit.
func NewRange(id uint32, preferred, minimum, limit int) (*Buffer, error) {
	if minimum <= 0 {
		return nil, errors.InvalidArgument("minimum", fmt.Sprintf("must be positive, got %d", minimum))
	}
	if preferred < minimum {
		return nil, errors.InvalidArgument("preferred", fmt.Sprintf("%d is below minimum %d", preferred, minimum))
	}
	size := min(preferred, limit, MaxSize)
	size -= size % minimum
	if size < minimum {
		return nil, errors.AllocationFailed("buffer", minimum)
	}
	return New(id, size)
}

// Capacity is the size of the ring in bytes.
func (b *Buffer) Capacity() int { return len(b.data) }

// Available is the number of bytes the consumer can read.
func (b *Buffer) Available() int {
	return int(b.produced.Load() - b.consumed.Load())
}

// Free is the number of bytes the producer can write.
func (b *Buffer) Free() int {
	return b.Capacity() - b.Available()
}

// ReadPos is the consumer offset into the ring.
func (b *Buffer) ReadPos() int {
	return int(b.consumed.Load() % uint64(len(b.data)))
}

// WritePos is the producer offset into the ring.
func (b *Buffer) WritePos() int {
	return int(b.produced.Load() % uint64(len(b.data)))
}

// Params returns the stream format carried by the buffer.
func (b *Buffer) Params() stream.Params { return b.params }

// SetParams sets the stream format. It is called on the control path only.
func (b *Buffer) SetParams(p stream.Params) { b.params = p }

// Commit marks n bytes already placed at WritePos as produced.
func (b *Buffer) Commit(n int) error {
	if n < 0 || n > b.Free() {
		return errors.InvalidArgument("bytes", fmt.Sprintf("commit %d with %d free on buffer %d", n, b.Free(), b.ID))
	}
	b.produced.Add(uint64(n))
	return nil
}

// Release marks n bytes at ReadPos as consumed.
func (b *Buffer) Release(n int) error {
	if n < 0 || n > b.Available() {
		return errors.InvalidArgument("bytes", fmt.Sprintf("release %d with %d available on buffer %d", n, b.Available(), b.ID))
	}
	b.consumed.Add(uint64(n))
	return nil
}

// Write copies as much of p as fits and commits it. It returns the number
// of bytes written.
func (b *Buffer) Write(p []byte) int {
	n := min(len(p), b.Free())
	if n == 0 {
		return 0
	}
	pos := b.WritePos()
	first := copy(b.data[pos:], p[:n])
	copy(b.data, p[first:n])
	b.produced.Add(uint64(n))
	return n
}

// Peek copies up to len(p) available bytes without consuming them.
func (b *Buffer) Peek(p []byte) int {
	n := min(len(p), b.Available())
	if n == 0 {
		return 0
	}
	pos := b.ReadPos()
	first := copy(p[:n], b.data[pos:])
	copy(p[first:n], b.data)
	return n
}

// Read copies up to len(p) available bytes and releases them.
func (b *Buffer) Read(p []byte) int {
	n := b.Peek(p)
	b.consumed.Add(uint64(n))
	return n
}

// SetSize reallocates the ring. It is refused while data is pending.
func (b *Buffer) SetSize(size int) error {
	if size <= 0 {
		return errors.InvalidArgument("size", fmt.Sprintf("buffer size must be positive, got %d", size))
	}
	if size > MaxSize {
		return errors.AllocationFailed("buffer", size)
	}
	if avail := b.Available(); avail != 0 {
		return errors.InvalidState("buffer", fmt.Sprintf("%d bytes pending", avail), "resize")
	}
	b.data = make([]byte, size)
	b.produced.Store(0)
	b.consumed.Store(0)
	return nil
}

// Reset drops pending data and clears the ring.
func (b *Buffer) Reset() {
	b.produced.Store(0)
	b.consumed.Store(0)
	clear(b.data)
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer-%d[%d->%d avail=%d/%d %s]",
		b.ID, b.Producer, b.Consumer, b.Available(), b.Capacity(), b.params)
}
