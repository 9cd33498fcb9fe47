package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/dag"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/task"
)

// change records one component state change made by a trigger invocation.
type change struct {
	d    *comp.Device
	cmd  comp.Command
	prev comp.State
}

// journal collects the changes of one invocation so they can be undone.
type journal []change

// rollback undoes every change in reverse order.
func (j journal) rollback() {
	for i := len(j) - 1; i >= 0; i-- {
		j[i].d.Rollback(j[i].cmd, j[i].prev)
	}
}

// Trigger runs a trigger command over the pipeline.
//
// START on a prepared pipeline runs PRE_START and then START; RELEASE on a
// paused pipeline runs PRE_RELEASE and then RELEASE. START on an active
// pipeline does nothing. If any component fails, every component changed by
// this call is rolled back and the error is returned.
func (p *Pipeline) Trigger(ctx context.Context, cmd comp.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.triggerRecorded(ctx, cmd)
}

func (p *Pipeline) triggerRecorded(ctx context.Context, cmd comp.Command) error {
	err := p.trigger(cmd)
	p.metrics.RecordTrigger(ctx, p.ID, cmd.String(), err)
	if err != nil {
		p.log.Warn("trigger failed", logger.MergeWithError(logger.Fields(logger.FieldCmd, cmd.String()), err))
		return err
	}
	p.log.Info("triggered", logger.Fields(logger.FieldCmd, cmd.String(), logger.FieldState, p.Status().String()))
	return nil
}

func (p *Pipeline) trigger(cmd comp.Command) error {
	st := p.Status()
	switch cmd {
	case comp.CmdStart:
		switch st {
		case comp.StateActive:
			return nil
		case comp.StatePrepare:
			return p.advance(st, comp.CmdPreStart, comp.CmdStart)
		case comp.StatePreActive:
			return p.advance(st, comp.CmdStart)
		}
	case comp.CmdRelease:
		switch st {
		case comp.StateActive:
			return nil
		case comp.StatePaused:
			return p.advance(st, comp.CmdPreRelease, comp.CmdRelease)
		case comp.StatePreActive:
			return p.advance(st, comp.CmdRelease)
		}
	case comp.CmdPreStart:
		if st == comp.StatePrepare {
			return p.advance(st, cmd)
		}
	case comp.CmdPreRelease:
		if st == comp.StatePaused {
			return p.advance(st, cmd)
		}
	case comp.CmdStop:
		switch st {
		case comp.StatePrepare:
			return nil
		case comp.StateActive, comp.StatePaused:
			return p.halt(cmd, comp.StatePrepare)
		case comp.StatePreActive:
			return p.abort()
		}
	case comp.CmdPause:
		switch st {
		case comp.StatePaused:
			return nil
		case comp.StateActive:
			return p.halt(cmd, comp.StatePaused)
		}
	case comp.CmdReset:
		if st != comp.StateInit {
			return p.reset()
		}
	default:
		return errors.InvalidArgument("cmd", fmt.Sprintf("%s is not a pipeline trigger", cmd))
	}
	return errors.InvalidState(fmt.Sprintf("pipeline %d", p.ID), st.String(), cmd.String())
}

// advance runs START-class stages as one invocation. With a trigger delay
// configured, the last of several stages is deferred to the pipeline task.
func (p *Pipeline) advance(from comp.State, stages ...comp.Command) error {
	var j journal
	undo := func(err error) error {
		j.rollback()
		p.setStatus(from)
		return err
	}

	for i, cmd := range stages {
		if i > 0 && p.cfg.TriggerDelay > 0 {
			p.pending, p.hasPending = cmd, true
			p.delay = p.cfg.TriggerDelay
			if err := p.schedule(); err != nil {
				p.hasPending = false
				return undo(err)
			}
			p.setStatus(comp.StatePreActive)
			p.log.Debug("final stage deferred", logger.Fields(logger.FieldCmd, cmd.String(), "periods", p.delay))
			return nil
		}
		if err := p.walk(cmd, &j); err != nil {
			return undo(err)
		}
	}

	switch stages[len(stages)-1] {
	case comp.CmdStart, comp.CmdRelease:
		p.hasPending = false
		p.delay = 0
		p.noProgress = 0
		if err := p.schedule(); err != nil {
			return undo(err)
		}
		p.setStatus(comp.StateActive)
	default:
		p.setStatus(comp.StatePreActive)
	}
	return nil
}

// halt runs a STOP-class walk and cancels the pipeline task.
func (p *Pipeline) halt(cmd comp.Command, next comp.State) error {
	var j journal
	if err := p.walk(cmd, &j); err != nil {
		j.rollback()
		return err
	}
	if err := p.cancel(); err != nil {
		j.rollback()
		return err
	}
	p.hasPending = false
	p.delay = 0
	p.setStatus(next)
	return nil
}

// abort stops a pipeline that never reached ACTIVE, such as one waiting
// out a trigger delay. Components left in PRE_ACTIVE return to PREPARE.
func (p *Pipeline) abort() error {
	if err := p.cancel(); err != nil {
		return err
	}
	for i := len(p.order) - 1; i >= 0; i-- {
		if d := p.order[i]; d.State() == comp.StatePreActive {
			d.Rollback(comp.CmdPreStart, comp.StatePrepare)
		}
	}
	p.hasPending = false
	p.delay = 0
	p.setStatus(comp.StatePrepare)
	return nil
}

// walk sends cmd to every component in trigger order. Components already in
// the target state are skipped.
func (p *Pipeline) walk(cmd comp.Command, j *journal) error {
	order := p.order
	if !cmd.StartClass() {
		order = slices.Clone(order)
		slices.Reverse(order)
	}
	for _, d := range order {
		prev := d.State()
		err := d.Trigger(cmd)
		if comp.IsAlreadySet(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s on component %d: %w", cmd, d.ID, err)
		}
		*j = append(*j, change{d: d, cmd: cmd, prev: prev})
	}
	return nil
}

// cancel dequeues the pipeline task. A task caught mid-run is left alone;
// it completes on its own once the status is no longer ACTIVE.
func (p *Pipeline) cancel() error {
	err := p.sched.CancelTask(&p.task)
	if errors.HasCode(err, errors.ErrCodeInvalidState) && p.task.Is(task.Running) {
		return nil
	}
	return err
}

func (p *Pipeline) schedule() error {
	return p.sched.ScheduleTask(&p.task, 0, p.Period)
}

// reset cancels the task and returns every component to READY, sink first.
func (p *Pipeline) reset() error {
	if err := p.cancel(); err != nil {
		return err
	}
	for i := len(p.order) - 1; i >= 0; i-- {
		p.order[i].Reset()
	}
	for _, b := range p.buffers {
		b.Reset()
	}
	p.noProgress = 0
	p.hasPending = false
	p.delay = 0
	p.setStatus(comp.StateReady)
	return nil
}

// XrunRecover restarts the pipeline after an xrun: STOP, RESET, PREPARE and
// START. The overlay flag is cleared once the pipeline runs again.
func (p *Pipeline) XrunRecover(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Info("xrun recovery", logger.Fields("xrun", p.xrun.Load()))
	switch p.Status() {
	case comp.StateActive, comp.StatePaused:
		if err := p.triggerRecorded(ctx, comp.CmdStop); err != nil {
			return err
		}
	}
	if err := p.triggerRecorded(ctx, comp.CmdReset); err != nil {
		return err
	}
	if err := p.prepare(); err != nil {
		return err
	}
	if err := p.triggerRecorded(ctx, comp.CmdStart); err != nil {
		return err
	}
	p.xrun.Store(false)
	return nil
}

// Free releases the task and every component. It is refused while the
// pipeline is running, paused or part way through a start.
func (p *Pipeline) Free() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch st := p.Status(); st {
	case comp.StateActive, comp.StatePaused, comp.StatePreActive:
		return errors.InvalidState(fmt.Sprintf("pipeline %d", p.ID), st.String(), "free")
	}
	if err := p.sched.FreeTask(&p.task); err != nil {
		return err
	}
	for _, d := range p.comps {
		d.Free()
	}
	clear(p.comps)
	clear(p.buffers)
	p.graph = dag.New[uint32]()
	p.invalidate()
	p.log.Info("pipeline freed")
	return nil
}
