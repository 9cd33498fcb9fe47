// Package buffer implements the byte ring that connects two components of a
// pipeline. A Buffer has exactly one producer and one consumer; positions
// are tracked with monotonically increasing atomic counters so that
// Available()+Free() == Capacity() holds after every operation without a
// lock on the data path.
package buffer
