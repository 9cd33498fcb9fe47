package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/dag"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/observability"
	"github.com/kbukum/dspcore/schedule"
	"github.com/kbukum/dspcore/task"
	"github.com/kbukum/dspcore/validation"
)

// Notifier receives asynchronous pipeline events for the host.
type Notifier interface {
	PipelineXrun(pipelineID uint32, err error)
	TriggerFailed(pipelineID uint32, cmd comp.Command, err error)
}

type nopNotifier struct{}

func (nopNotifier) PipelineXrun(uint32, error)                {}
func (nopNotifier) TriggerFailed(uint32, comp.Command, error) {}

// Option configures a pipeline.
type Option func(*Pipeline)

// WithNotifier sets the receiver of xrun and trigger failure events.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithMetrics records triggers and xruns.
func WithMetrics(m *observability.DSPMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline is a graph of components scheduled as one LL task.
type Pipeline struct {
	ID           uint32
	Core         int
	Priority     int
	Period       uint64
	PeriodFrames int

	cfg      Config
	sched    *schedule.Registry
	notifier Notifier
	metrics  *observability.DSPMetrics
	log      *logger.Logger

	mu      sync.Mutex
	graph   *dag.Graph[uint32]
	comps   map[uint32]*comp.Device
	buffers map[uint32]*buffer.Buffer
	order   []*comp.Device
	source  *comp.Device
	sink    *comp.Device
	task    task.Task

	status     atomic.Uint32
	xrun       atomic.Bool
	noProgress int
	pending    comp.Command
	hasPending bool
	delay      int
}

// New creates a pipeline in state INIT and initializes its LL task.
func New(spec Spec, sched *schedule.Registry, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := validation.Validate(spec); err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, errors.InvalidArgument("sched", "scheduler registry is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		ID:           spec.ID,
		Core:         spec.Core,
		Priority:     spec.Priority,
		Period:       spec.Period,
		PeriodFrames: spec.PeriodFrames,
		cfg:          cfg,
		sched:        sched,
		notifier:     nopNotifier{},
		graph:        dag.New[uint32](),
		comps:        make(map[uint32]*comp.Device),
		buffers:      make(map[uint32]*buffer.Buffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get(logger.SubsystemPipeline)
	}
	p.log = p.log.WithCore(p.Core).WithPipeline(p.ID)

	p.task.Name = fmt.Sprintf("pipeline-%d", p.ID)
	if err := sched.Init(&p.task, task.TypeLL, p.Priority, p.run, p, p.Core, 0); err != nil {
		return nil, err
	}
	p.status.Store(uint32(comp.StateInit))
	return p, nil
}

// Status mirrors the state of the pipeline's components.
func (p *Pipeline) Status() comp.State { return comp.State(p.status.Load()) }

// Xrun reports whether the xrun overlay flag is set.
func (p *Pipeline) Xrun() bool { return p.xrun.Load() }

// Task returns the pipeline's LL task.
func (p *Pipeline) Task() *task.Task { return &p.task }

// Config returns the effective pipeline settings.
func (p *Pipeline) Config() Config { return p.cfg }

// Components returns the components in topological order once complete,
// otherwise in insertion order.
func (p *Pipeline) Components() []*comp.Device {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.order != nil {
		return append([]*comp.Device(nil), p.order...)
	}
	out := make([]*comp.Device, 0, len(p.comps))
	for _, id := range p.graph.Nodes() {
		out = append(out, p.comps[id])
	}
	return out
}

// Component looks a member component up by id.
func (p *Pipeline) Component(id uint32) (*comp.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.comps[id]; ok {
		return d, nil
	}
	return nil, errors.NotFound("component", id)
}

// Buffer looks a member buffer up by id.
func (p *Pipeline) Buffer(id uint32) (*buffer.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.buffers[id]; ok {
		return b, nil
	}
	return nil, errors.NotFound("buffer", id)
}

// Endpoints returns the source and sink components set by Complete.
func (p *Pipeline) Endpoints() (source, sink *comp.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source, p.sink
}

func (p *Pipeline) setStatus(s comp.State) {
	p.status.Store(uint32(s))
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline-%d[core=%d %s xrun=%t]", p.ID, p.Core, p.Status(), p.Xrun())
}
