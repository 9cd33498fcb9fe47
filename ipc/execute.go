package ipc

import (
	"context"
	"fmt"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/pipeline"
	"github.com/kbukum/dspcore/validation"
	"github.com/kbukum/dspcore/version"
)

// execute runs on the primary core inside the command task.
func (p *Processor) execute(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Op {
	case OpVersion:
		return version.GetVersionInfo(), nil
	case OpPipelineNew:
		return p.pipelineNew(cmd)
	case OpPipelineFree:
		return nil, p.pipelineFree(ctx, cmd.PipelineID)
	case OpPipelineConnect:
		return nil, p.connect(ctx, cmd)
	case OpPipelineComplete:
		return nil, p.onPipeline(ctx, cmd.PipelineID, func(pl *pipeline.Pipeline) error {
			return pl.Complete(cmd.Source, cmd.Sink)
		})
	case OpPipelineList:
		return p.list(), nil
	case OpComponentNew:
		return nil, p.componentNew(ctx, cmd)
	case OpComponentFree:
		return nil, p.componentFree(ctx, cmd)
	case OpBufferNew:
		return nil, p.bufferNew(cmd.Buffer)
	case OpBufferFree:
		return nil, p.bufferFree(ctx, cmd.BufferID)
	case OpStreamParams:
		if cmd.Params == nil {
			return nil, errors.InvalidArgument("params", "stream params are required")
		}
		return nil, p.rt.Params(ctx, cmd.PipelineID, *cmd.Params)
	case OpStreamPrepare:
		return nil, p.rt.Prepare(ctx, cmd.PipelineID)
	case OpStreamTrigger:
		tc, err := comp.ParseCommand(cmd.Trigger)
		if err != nil {
			return nil, err
		}
		return nil, p.rt.Trigger(ctx, cmd.PipelineID, tc)
	case OpStreamReset:
		return nil, p.rt.Reset(ctx, cmd.PipelineID)
	case OpStreamState:
		return p.state(ctx, cmd.PipelineID)
	case OpStreamPosition:
		return p.position(ctx, cmd.PipelineID, cmd.ComponentID)
	case OpXrunRecover:
		return nil, p.rt.XrunRecover(ctx, cmd.PipelineID)
	case OpCoreEnable:
		return nil, p.rt.EnableCore(ctx, cmd.Core)
	case OpCoreDisable:
		return nil, p.rt.DisableCore(ctx, cmd.Core)
	}
	return nil, errors.InvalidArgument("op", fmt.Sprintf("unknown operation %q", cmd.Op))
}

func (p *Processor) pipelineNew(cmd Command) (any, error) {
	if cmd.Pipeline == nil {
		return nil, errors.InvalidArgument("pipeline", "pipeline spec is required")
	}
	pl, err := p.rt.NewPipeline(*cmd.Pipeline)
	if err != nil {
		return nil, err
	}
	return infoOf(pl, pl.Status()), nil
}

func (p *Processor) pipelineFree(ctx context.Context, id uint32) error {
	if err := p.rt.FreePipeline(ctx, id); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.buffers {
		if e.pipeline == id {
			e.pipeline = 0
		}
	}
	return nil
}

func (p *Processor) state(ctx context.Context, id uint32) (any, error) {
	pl, err := p.rt.Pipelines().Get(id)
	if err != nil {
		return nil, err
	}
	st, err := p.rt.State(ctx, id)
	if err != nil {
		return nil, err
	}
	return infoOf(pl, st), nil
}

// PositionInfo is a stream position stamped with the owning core's tick
// count.
type PositionInfo struct {
	pipeline.Position
	Core  int    `json:"core"`
	Ticks uint64 `json:"ticks"`
}

// position reads the stream position on the owning core. compID 0 picks
// the pipeline's endpoints.
func (p *Processor) position(ctx context.Context, id, compID uint32) (any, error) {
	pl, err := p.rt.Pipelines().Get(id)
	if err != nil {
		return nil, err
	}
	info := PositionInfo{Core: pl.Core}
	err = p.rt.Exec(ctx, pl.Core, func(context.Context) error {
		pos, err := pl.Position(compID)
		if err != nil {
			return err
		}
		info.Position = pos
		if c, err := p.rt.Core(pl.Core); err == nil {
			info.Ticks = c.Ticks()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (p *Processor) list() []PipelineInfo {
	all := p.rt.Pipelines().All()
	out := make([]PipelineInfo, 0, len(all))
	for _, pl := range all {
		out = append(out, infoOf(pl, pl.Status()))
	}
	return out
}

// onPipeline runs fn on the core that owns the pipeline.
func (p *Processor) onPipeline(ctx context.Context, id uint32, fn func(*pipeline.Pipeline) error) error {
	pl, err := p.rt.Pipelines().Get(id)
	if err != nil {
		return err
	}
	return p.rt.Exec(ctx, pl.Core, func(context.Context) error { return fn(pl) })
}

// componentNew creates the component on its pipeline's core. The
// component's core always follows its pipeline.
func (p *Processor) componentNew(ctx context.Context, cmd Command) error {
	if cmd.Component == nil {
		return errors.InvalidArgument("component", "component config is required")
	}
	cfg := *cmd.Component
	return p.onPipeline(ctx, cfg.PipelineID, func(pl *pipeline.Pipeline) error {
		cfg.Core = pl.Core
		d, err := p.rt.Drivers().New(cfg)
		if err != nil {
			return err
		}
		if err := pl.Add(d); err != nil {
			d.Free()
			return err
		}
		return nil
	})
}

func (p *Processor) componentFree(ctx context.Context, cmd Command) error {
	id := cmd.PipelineID
	if id == 0 {
		pl, err := p.owner(cmd.ComponentID)
		if err != nil {
			return err
		}
		id = pl.ID
	}
	return p.onPipeline(ctx, id, func(pl *pipeline.Pipeline) error {
		return pl.Remove(cmd.ComponentID)
	})
}

// owner finds the pipeline holding a component.
func (p *Processor) owner(compID uint32) (*pipeline.Pipeline, error) {
	for _, pl := range p.rt.Pipelines().All() {
		if _, err := pl.Component(compID); err == nil {
			return pl, nil
		}
	}
	return nil, errors.NotFound("component", compID)
}

func (p *Processor) bufferNew(spec *BufferSpec) error {
	if spec == nil {
		return errors.InvalidArgument("buffer", "buffer spec is required")
	}
	if err := validation.Validate(spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.buffers[spec.ID]; ok {
		return errors.AlreadyExists("buffer", spec.ID)
	}

	var (
		b   *buffer.Buffer
		err error
	)
	if spec.Minimum > 0 {
		b, err = buffer.NewRange(spec.ID, spec.Size, spec.Minimum, spec.Limit)
	} else {
		b, err = buffer.New(spec.ID, spec.Size)
	}
	if err != nil {
		return err
	}
	p.buffers[spec.ID] = &bufferEntry{buf: b}
	return nil
}

func (p *Processor) bufferFree(ctx context.Context, id uint32) error {
	e, err := p.buffer(id)
	if err != nil {
		return err
	}
	if pl := p.attachedTo(e); pl != nil {
		err := p.rt.Exec(ctx, pl.Core, func(context.Context) error { return pl.Disconnect(id) })
		if err != nil {
			return err
		}
	}
	p.mu.Lock()
	delete(p.buffers, id)
	p.mu.Unlock()
	return nil
}

func (p *Processor) connect(ctx context.Context, cmd Command) error {
	e, err := p.buffer(cmd.BufferID)
	if err != nil {
		return err
	}
	if pl := p.attachedTo(e); pl != nil {
		return errors.InvalidState(fmt.Sprintf("buffer %d", cmd.BufferID), fmt.Sprintf("connected in pipeline %d", pl.ID), "connect")
	}
	err = p.onPipeline(ctx, cmd.PipelineID, func(pl *pipeline.Pipeline) error {
		return pl.Connect(e.buf, cmd.Source, cmd.Sink)
	})
	if err != nil {
		return err
	}
	p.mu.Lock()
	e.pipeline = cmd.PipelineID
	p.mu.Unlock()
	return nil
}

func (p *Processor) buffer(id uint32) (*bufferEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.buffers[id]
	if !ok {
		return nil, errors.NotFound("buffer", id)
	}
	return e, nil
}

// attachedTo returns the pipeline still holding e's buffer. Removing a
// component or freeing a pipeline also detaches its buffers.
func (p *Processor) attachedTo(e *bufferEntry) *pipeline.Pipeline {
	p.mu.Lock()
	id := e.pipeline
	p.mu.Unlock()
	if id == 0 {
		return nil
	}
	pl, err := p.rt.Pipelines().Get(id)
	if err != nil {
		return nil
	}
	if _, err := pl.Buffer(e.buf.ID); err != nil {
		return nil
	}
	return pl
}
