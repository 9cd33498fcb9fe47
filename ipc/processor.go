package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/core"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/task"
	"github.com/kbukum/dspcore/validation"
)

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics records command durations and statuses.
func WithMetrics(m *observability.DSPMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the processor logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// Processor executes host commands against a runtime.
type Processor struct {
	rt      *core.Runtime
	cfg     Config
	metrics *observability.DSPMetrics
	log     *logger.Logger

	mu      sync.Mutex
	buffers map[uint32]*bufferEntry
}

// bufferEntry is a host-allocated buffer. pipeline is 0 while unattached.
type bufferEntry struct {
	buf      *buffer.Buffer
	pipeline uint32
}

// NewProcessor creates a Processor for rt.
func NewProcessor(rt *core.Runtime, cfg Config, opts ...Option) *Processor {
	cfg.ApplyDefaults()
	p := &Processor{
		rt:      rt,
		cfg:     cfg,
		buffers: make(map[uint32]*bufferEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get(logger.SubsystemIPC)
	}
	return p
}

// Handle runs cmd and returns its reply. It never returns before the
// command finished or the command timeout expired.
func (p *Processor) Handle(ctx context.Context, cmd Command) Reply {
	op := observability.NewOperation(string(cmd.Op), cmd.RequestID, p.metrics)
	ctx, span := op.Begin(ctx)

	data, err := p.submit(ctx, cmd)
	reply := NewReply(data, err)
	op.End(ctx, span, reply.Status, err)

	fields := logger.Fields(logger.FieldCmd, string(cmd.Op), "status", reply.Status, logger.FieldDuration, op.Duration().Milliseconds())
	log := p.log.WithContext(ctx)
	if err != nil {
		log.Warn("command failed", logger.MergeWithError(fields, err))
	} else {
		log.Debug("command done", fields)
	}
	return reply
}

type job struct {
	ctx  context.Context
	cmd  Command
	done chan result
}

type result struct {
	data any
	err  error
}

// submit queues cmd as a DEADLINE_NOW task on the primary core and waits
// for it.
func (p *Processor) submit(ctx context.Context, cmd Command) (any, error) {
	if err := validation.Validate(cmd); err != nil {
		return nil, err
	}
	if p.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CommandTimeout)
		defer cancel()
	}

	j := &job{ctx: ctx, cmd: cmd, done: make(chan result, 1)}
	t := &task.Task{Name: "ipc-" + string(cmd.Op)}
	sched := p.rt.Scheduler()
	if err := sched.Init(t, task.TypeEDF, task.PriorityHigh, p.run, j, core.Primary, 0); err != nil {
		return nil, err
	}
	if err := sched.ScheduleTask(t, 0, task.DeadlineNow); err != nil {
		return nil, err
	}

	select {
	case res := <-j.done:
		return res.data, res.err
	case <-ctx.Done():
	}
	select {
	case res := <-j.done:
		return res.data, res.err
	default:
	}
	// A command that already started still finishes; only its reply is lost.
	_ = sched.CancelTask(t)
	return nil, errors.Timeout("ipc " + string(cmd.Op)).WithCause(context.Cause(ctx))
}

func (p *Processor) run(data any) (st task.State) {
	j := data.(*job)
	st = task.Completed
	defer func() {
		if rec := recover(); rec != nil {
			j.done <- result{err: errors.Internal(fmt.Errorf("%s panicked: %v", j.cmd.Op, rec))}
		}
	}()
	d, err := p.execute(j.ctx, j.cmd)
	j.done <- result{data: d, err: err}
	return st
}
