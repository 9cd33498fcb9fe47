package pipeline

import (
	"fmt"

	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
	"github.com/kbukum/dspcore/stream"
)

// Params negotiates stream formats source to sink. The source receives
// host; every other component receives its first source buffer's format
// and passes its output format to its sink buffers.
func (p *Pipeline) Params(host stream.Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st := p.Status(); st != comp.StateReady {
		return errors.InvalidState(fmt.Sprintf("pipeline %d", p.ID), st.String(), "params")
	}
	if err := host.Validate(); err != nil {
		return err
	}

	for _, d := range p.order {
		in := host
		if len(d.Sources) > 0 {
			in = d.Sources[0].Params()
		}
		out, err := d.SetParams(in)
		if err != nil {
			return fmt.Errorf("params on component %d: %w", d.ID, err)
		}
		p.log.Debug("params", logger.Fields(logger.FieldCompID, d.ID, "in", in.String(), "out", out.String()))
	}
	return nil
}

// Prepare checks every buffer and prepares every component. The producer's
// output format must equal what the consumer expects, and each buffer must
// hold one period of the producer's output.
func (p *Pipeline) Prepare() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prepare()
}

func (p *Pipeline) prepare() error {
	if st := p.Status(); st != comp.StateReady {
		return errors.InvalidState(fmt.Sprintf("pipeline %d", p.ID), st.String(), "prepare")
	}
	if err := p.checkBuffers(); err != nil {
		return err
	}

	var prepared []*comp.Device
	for _, d := range p.order {
		err := d.Prepare()
		if comp.IsAlreadySet(err) {
			continue
		}
		if err != nil {
			for i := len(prepared) - 1; i >= 0; i-- {
				prepared[i].Reset()
			}
			return fmt.Errorf("prepare component %d: %w", d.ID, err)
		}
		prepared = append(prepared, d)
	}

	p.noProgress = 0
	p.hasPending = false
	p.delay = 0
	p.setStatus(comp.StatePrepare)
	return nil
}

func (p *Pipeline) checkBuffers() error {
	for _, d := range p.order {
		for _, b := range d.Sinks {
			consumer, ok := p.comps[b.Consumer]
			if !ok {
				return errors.Configuration(fmt.Sprintf("buffer %d has no consumer", b.ID))
			}
			got := d.Params()
			if got.IsZero() {
				return errors.Configuration(fmt.Sprintf("component %d has no params", d.ID))
			}
			want := consumer.InputParams()
			if got != want {
				return errors.FormatMismatch(d.ID, consumer.ID, want.String(), got.String())
			}
			if need := d.PeriodBytes(); b.Capacity() < need {
				return errors.InsufficientBuffer(b.ID, b.Capacity(), need)
			}
		}
	}
	return nil
}
