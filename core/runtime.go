package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/idc"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/pipeline"
	"github.com/kbukum/dspcore/schedule"
)

// Notifier receives the asynchronous events the host is told about.
type Notifier interface {
	pipeline.Notifier
	CoreCrashed(core int, err error)
}

type nopNotifier struct{}

func (nopNotifier) PipelineXrun(uint32, error)                {}
func (nopNotifier) TriggerFailed(uint32, comp.Command, error) {}
func (nopNotifier) CoreCrashed(int, error)                    {}

// Option configures a Runtime.
type Option func(*Runtime)

// WithNotifier sets the receiver of host notifications.
func WithNotifier(n Notifier) Option {
	return func(r *Runtime) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithMetrics wires the DSP instruments into every scheduler, the bus and
// the pipelines.
func WithMetrics(m *observability.DSPMetrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithClock replaces the scheduler clock.
func WithClock(c schedule.Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

// WithDrivers replaces the component driver registry.
func WithDrivers(d *comp.Registry) Option {
	return func(r *Runtime) { r.drivers = d }
}

// WithLogger overrides the runtime logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runtime) { r.log = l }
}

type coreRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Runtime owns the cores and everything scheduled on them.
type Runtime struct {
	cfg      Config
	clock    schedule.Clock
	sched    *schedule.Registry
	bus      *idc.Bus
	cores    []*Core
	pipes    *pipeline.Registry
	drivers  *comp.Registry
	notifier Notifier
	metrics  *observability.DSPMetrics
	log      *logger.Logger

	mu      sync.Mutex
	running map[int]*coreRun
	wg      sync.WaitGroup
	fatal   chan error
}

var _ component.Component = (*Runtime)(nil)

// New builds the runtime: one LL and one EDF scheduler per core, the IDC
// bus and an empty pipeline registry. No core runs until Start.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.InvalidArgument("runtime", err.Error()).WithCause(err)
	}

	r := &Runtime{
		cfg:      cfg,
		sched:    schedule.NewRegistry(),
		pipes:    pipeline.NewRegistry(),
		notifier: nopNotifier{},
		running:  make(map[int]*coreRun),
		fatal:    make(chan error, cfg.Cores),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = schedule.NewSystemClock()
	}
	if r.drivers == nil {
		r.drivers = comp.NewBuiltinRegistry()
	}
	if r.log == nil {
		r.log = logger.Get(logger.SubsystemCore)
	}
	r.bus = idc.New(cfg.Cores, cfg.MailboxDepth, idc.WithMetrics(r.metrics))

	for id := range cfg.Cores {
		so := []schedule.Option{schedule.WithMetrics(r.metrics)}
		c := &Core{
			ID:      id,
			ll:      schedule.NewLL(id, r.clock, so...),
			edf:     schedule.NewEDF(id, r.clock, so...),
			bus:     r.bus,
			period:  cfg.TickPeriod,
			budget:  cfg.Budget(),
			metrics: r.metrics,
			log:     r.log.WithCore(id),
		}
		c.handler = func(m *idc.Message) error { return r.dispatch(c, m) }
		if err := r.sched.Register(c.ll); err != nil {
			return nil, err
		}
		if err := r.sched.Register(c.edf); err != nil {
			return nil, err
		}
		r.cores = append(r.cores, c)
	}
	return r, nil
}

func (r *Runtime) Name() string { return "runtime" }

// Describe implements component.Describable.
func (r *Runtime) Describe() component.Description {
	return component.Description{
		Type:    "runtime",
		Details: fmt.Sprintf("cores=%d tick=%s budget=%s", r.cfg.Cores, r.cfg.TickPeriod, r.cfg.Budget()),
	}
}

// Start brings up the primary core. Secondary cores are enabled by the host.
func (r *Runtime) Start(context.Context) error {
	return r.startCore(Primary)
}

// Stop cancels every core loop and waits for them to return.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	for _, run := range r.running {
		run.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Timeout("runtime stop").WithCause(ctx.Err())
	}
}

// Config returns the effective settings.
func (r *Runtime) Config() Config { return r.cfg }

// Scheduler returns the scheduler registry.
func (r *Runtime) Scheduler() *schedule.Registry { return r.sched }

// Bus returns the IDC bus.
func (r *Runtime) Bus() *idc.Bus { return r.bus }

// Pipelines returns the pipeline registry.
func (r *Runtime) Pipelines() *pipeline.Registry { return r.pipes }

// Drivers returns the component driver registry.
func (r *Runtime) Drivers() *comp.Registry { return r.drivers }

// Errors delivers the fatal error of every crashed core.
func (r *Runtime) Errors() <-chan error { return r.fatal }

// Core returns the core with the given id.
func (r *Runtime) Core(id int) (*Core, error) {
	if id < 0 || id >= len(r.cores) {
		return nil, errors.NotFound("core", id)
	}
	return r.cores[id], nil
}

// Running reports whether the core loop of id is running.
func (r *Runtime) Running(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}

// EnableCore powers up a secondary core and waits for it to answer.
func (r *Runtime) EnableCore(ctx context.Context, id int) error {
	c, err := r.Core(id)
	if err != nil {
		return err
	}
	if c.Crashed() {
		return errors.InvalidState(fmt.Sprintf("core %d", id), "CRASHED", "enable")
	}
	if err := r.startCore(id); err != nil {
		return err
	}
	if id == Primary {
		return nil
	}
	return r.bus.Call(ctx, Primary, id, &idc.Message{Type: idc.PowerUp})
}

// DisableCore powers a secondary core down. It is refused while the core
// still owns scheduled tasks.
func (r *Runtime) DisableCore(ctx context.Context, id int) error {
	if _, err := r.Core(id); err != nil {
		return err
	}
	if id == Primary {
		return errors.InvalidArgument("core", "the primary core cannot be disabled")
	}

	r.mu.Lock()
	run, ok := r.running[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := r.bus.Call(ctx, Primary, id, &idc.Message{Type: idc.PowerDown}); err != nil {
		return err
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return errors.Timeout(fmt.Sprintf("core %d power down", id)).WithCause(ctx.Err())
	}
}

func (r *Runtime) startCore(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.running[id]; ok {
		return nil
	}
	c := r.cores[id]
	if err := r.bus.Enable(id); err != nil {
		return err
	}
	c.stopping.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	run := &coreRun{cancel: cancel, done: make(chan struct{})}
	r.running[id] = run
	r.wg.Add(1)
	go r.run(ctx, c, run)
	return nil
}

func (r *Runtime) run(ctx context.Context, c *Core, run *coreRun) {
	defer r.wg.Done()
	defer close(run.done)

	err := c.Run(ctx)
	_ = r.bus.Disable(c.ID)
	r.mu.Lock()
	delete(r.running, c.ID)
	r.mu.Unlock()
	run.cancel()

	if err == nil {
		return
	}
	if c.ID != Primary {
		sendErr := r.bus.Send(c.ID, Primary, &idc.Message{Type: idc.CoreCrashed, Payload: err})
		if sendErr == nil {
			return
		}
		r.log.Warn("crash report not delivered", logger.MergeWithError(logger.Fields(logger.FieldCore, c.ID), sendErr))
	}
	r.coreCrashed(c.ID, err)
}

// coreCrashed tells the host and the process about a fatal core error.
func (r *Runtime) coreCrashed(id int, err error) {
	r.log.Error("core crashed", logger.MergeWithError(logger.Fields(logger.FieldCore, id), err))
	r.notifier.CoreCrashed(id, err)
	select {
	case r.fatal <- err:
	default:
	}
}
