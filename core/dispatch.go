package core

import (
	"context"
	"fmt"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/idc"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/pipeline"
	"github.com/kbukum/dspcore/stream"
)

// Exec is a host command forwarded to the core that owns its target.
type Exec func(ctx context.Context) error

// NewPipeline creates a pipeline on an enabled core and registers it.
func (r *Runtime) NewPipeline(spec pipeline.Spec) (*pipeline.Pipeline, error) {
	if _, err := r.Core(spec.Core); err != nil {
		return nil, err
	}
	if !r.bus.Enabled(spec.Core) {
		return nil, errors.Unavailable(fmt.Sprintf("core %d", spec.Core))
	}
	p, err := pipeline.New(spec, r.sched, r.cfg.Pipeline,
		pipeline.WithNotifier(r.notifier),
		pipeline.WithMetrics(r.metrics),
	)
	if err != nil {
		return nil, err
	}
	if err := r.pipes.Add(p); err != nil {
		_ = p.Free()
		return nil, err
	}
	return p, nil
}

// FreePipeline frees a pipeline on its core and forgets it.
func (r *Runtime) FreePipeline(ctx context.Context, id uint32) error {
	p, err := r.pipes.Get(id)
	if err != nil {
		return err
	}
	err = r.Exec(ctx, p.Core, func(context.Context) error { return p.Free() })
	if err != nil {
		return err
	}
	return r.pipes.Remove(id)
}

// Params negotiates stream parameters on the owning core.
func (r *Runtime) Params(ctx context.Context, id uint32, params stream.Params) error {
	return r.send(ctx, id, &idc.Message{Type: idc.Params, Payload: params})
}

// Prepare prepares the pipeline on the owning core.
func (r *Runtime) Prepare(ctx context.Context, id uint32) error {
	return r.send(ctx, id, &idc.Message{Type: idc.Prepare})
}

// Trigger runs a trigger command on the owning core.
func (r *Runtime) Trigger(ctx context.Context, id uint32, cmd comp.Command) error {
	return r.send(ctx, id, &idc.Message{Type: idc.Trigger, Payload: cmd})
}

// Reset resets the pipeline on the owning core.
func (r *Runtime) Reset(ctx context.Context, id uint32) error {
	return r.send(ctx, id, &idc.Message{Type: idc.Reset})
}

// State queries the pipeline status on the owning core.
func (r *Runtime) State(ctx context.Context, id uint32) (comp.State, error) {
	m := &idc.Message{Type: idc.PipelineState}
	if err := r.send(ctx, id, m); err != nil {
		return comp.StateInit, err
	}
	st, _ := m.Result.(comp.State)
	return st, nil
}

// XrunRecover restarts a pipeline after an xrun on the owning core.
func (r *Runtime) XrunRecover(ctx context.Context, id uint32) error {
	p, err := r.pipes.Get(id)
	if err != nil {
		return err
	}
	return r.Exec(ctx, p.Core, p.XrunRecover)
}

// Exec runs fn on core: inline on the primary, over IDC elsewhere.
func (r *Runtime) Exec(ctx context.Context, core int, fn Exec) error {
	return r.call(ctx, core, &idc.Message{Type: idc.IPC, Payload: fn})
}

func (r *Runtime) send(ctx context.Context, id uint32, m *idc.Message) error {
	p, err := r.pipes.Get(id)
	if err != nil {
		return err
	}
	m.PipelineID = id
	return r.call(ctx, p.Core, m)
}

func (r *Runtime) call(ctx context.Context, core int, m *idc.Message) error {
	c, err := r.Core(core)
	if err != nil {
		return err
	}
	if core == Primary {
		m.From, m.To = Primary, Primary
		return r.dispatch(c, m)
	}
	return r.bus.Call(ctx, Primary, core, m)
}

// dispatch handles one message on core c.
func (r *Runtime) dispatch(c *Core, m *idc.Message) error {
	ctx := context.Background()
	switch m.Type {
	case idc.PowerUp:
		c.log.Info("core powered up")
		return nil
	case idc.PowerDown:
		if n := r.sched.Queued(c.ID); n > 0 {
			return errors.InvalidState(fmt.Sprintf("core %d", c.ID), fmt.Sprintf("%d tasks scheduled", n), "power down")
		}
		c.stopping.Store(true)
		return nil
	case idc.Notify:
		c.log.Info("notify", logger.Fields("from", m.From, "payload", fmt.Sprint(m.Payload)))
		return nil
	case idc.CoreCrashed:
		err, _ := m.Payload.(error)
		if err == nil {
			err = errors.Fatal(fmt.Sprintf("core %d crashed", m.From))
		}
		r.coreCrashed(m.From, err)
		return nil
	case idc.IPC:
		fn, ok := m.Payload.(Exec)
		if !ok {
			return errors.InvalidArgument("payload", fmt.Sprintf("%T is not a command", m.Payload))
		}
		return fn(ctx)
	}

	p, err := r.pipes.Get(m.PipelineID)
	if err != nil {
		return err
	}
	if p.Core != c.ID {
		return errors.InvalidArgument("core", fmt.Sprintf("pipeline %d runs on core %d, not %d", p.ID, p.Core, c.ID))
	}
	switch m.Type {
	case idc.Params:
		params, ok := m.Payload.(stream.Params)
		if !ok {
			return errors.InvalidArgument("payload", fmt.Sprintf("%T is not stream params", m.Payload))
		}
		return p.Params(params)
	case idc.Prepare:
		return p.Prepare()
	case idc.Trigger:
		cmd, ok := m.Payload.(comp.Command)
		if !ok {
			return errors.InvalidArgument("payload", fmt.Sprintf("%T is not a trigger command", m.Payload))
		}
		return p.Trigger(ctx, cmd)
	case idc.Reset:
		return p.Trigger(ctx, comp.CmdReset)
	case idc.PipelineState:
		m.Result = p.Status()
		return nil
	}
	return errors.InvalidArgument("type", fmt.Sprintf("unhandled message %s", m.Type))
}
