package schedule

import (
	"sync/atomic"
	"time"
)

// Clock returns the scheduler time in µs.
type Clock interface {
	NowUS() uint64
}

// SystemClock counts µs since it was created.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock starts a clock at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// NowUS returns µs since the clock was created.
func (c *SystemClock) NowUS() uint64 {
	return uint64(time.Since(c.origin).Microseconds())
}

// ManualClock only moves when told to.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock starts a manual clock at the given time.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

// NowUS returns the current time.
func (c *ManualClock) NowUS() uint64 {
	return c.now.Load()
}

// Advance moves the clock forward by d µs and returns the new time.
func (c *ManualClock) Advance(d uint64) uint64 {
	return c.now.Add(d)
}

// Set moves the clock to t.
func (c *ManualClock) Set(t uint64) {
	c.now.Store(t)
}
