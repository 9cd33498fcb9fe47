package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/dspcore/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	summaryOut      io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger. Without it the logger is initialised
// from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithSummaryOutput redirects the startup summary. Nil disables it.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		if w == nil {
			w = io.Discard
		}
		o.summaryOut = w
	}
}
