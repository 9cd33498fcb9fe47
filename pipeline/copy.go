package pipeline

import (
	"context"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/task"
)

// Copy runs one period: every active component copies, source to sink. A
// period in which any component made partial progress counts toward the
// xrun threshold; reaching it raises exactly one xrun. A full period resets
// the count. Component errors are returned as DATA_ERROR.
func (p *Pipeline) Copy() (comp.CopyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copy()
}

func (p *Pipeline) copy() (comp.CopyResult, error) {
	result := comp.CopyComplete
	for _, d := range p.order {
		if d.State() != comp.StateActive {
			continue
		}
		r, err := d.Copy()
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.DataError(err.Error()).WithCause(err)
			}
			return comp.CopyPartial, err
		}
		if r == comp.CopyPartial {
			result = comp.CopyPartial
		}
	}

	if result == comp.CopyComplete {
		p.noProgress = 0
		return result, nil
	}
	p.noProgress++
	p.log.Debug("no progress", logger.Fields("periods", p.noProgress))
	if p.noProgress == p.cfg.XrunThreshold {
		p.raiseXrun(errors.Xrun(p.ID).WithDetail("periods", p.noProgress))
	}
	return result, nil
}

func (p *Pipeline) raiseXrun(err error) {
	p.xrun.Store(true)
	p.metrics.RecordXrun(context.Background(), p.ID)
	p.log.Warn("xrun", logger.MergeWithError(nil, err))
	p.notifier.PipelineXrun(p.ID, err)
}

// run is the pipeline's LL task.
func (p *Pipeline) run(any) task.State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.delay > 0 {
		p.delay--
		return task.Reschedule
	}
	if p.hasPending {
		cmd := p.pending
		p.hasPending = false
		var j journal
		if err := p.walk(cmd, &j); err != nil {
			j.rollback()
			p.metrics.RecordTrigger(context.Background(), p.ID, cmd.String(), err)
			p.log.Error("deferred trigger failed", logger.MergeWithError(logger.Fields(logger.FieldCmd, cmd.String()), err))
			p.notifier.TriggerFailed(p.ID, cmd, err)
			return task.Completed
		}
		p.metrics.RecordTrigger(context.Background(), p.ID, cmd.String(), nil)
		p.noProgress = 0
		p.setStatus(comp.StateActive)
	}
	if p.Status() != comp.StateActive {
		return task.Completed
	}

	if _, err := p.copy(); err != nil {
		p.raiseXrun(err)
		return task.Completed
	}
	return task.Reschedule
}
