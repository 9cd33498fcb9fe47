// Package stream describes PCM stream formats exchanged between components
// and buffers, and converts between interleaved PCM bytes and
// github.com/go-audio/audio sample buffers.
package stream
