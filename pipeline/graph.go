package pipeline

import (
	stderrors "errors"
	"fmt"

	"github.com/kbukum/dspcore/buffer"
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/dag"
	"github.com/kbukum/dspcore/errors"
	"github.com/kbukum/dspcore/logger"
)

// editable returns an error unless the graph may change. Editing a
// completed graph drops it back to INIT.
func (p *Pipeline) editable(op string) error {
	switch st := p.Status(); st {
	case comp.StateInit, comp.StateReady:
		return nil
	default:
		return errors.InvalidState(fmt.Sprintf("pipeline %d", p.ID), st.String(), op)
	}
}

func (p *Pipeline) invalidate() {
	p.order = nil
	p.source, p.sink = nil, nil
	p.setStatus(comp.StateInit)
}

// Add makes d a member of the pipeline.
func (p *Pipeline) Add(d *comp.Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.editable("add component"); err != nil {
		return err
	}
	if d.PipelineID != p.ID {
		return errors.InvalidArgument("pipeline_id", fmt.Sprintf("component %d belongs to pipeline %d", d.ID, d.PipelineID))
	}
	if d.Core != p.Core {
		return errors.InvalidArgument("core", fmt.Sprintf("component %d on core %d, pipeline on core %d", d.ID, d.Core, p.Core))
	}
	if _, ok := p.comps[d.ID]; ok {
		return errors.AlreadyExists("component", d.ID)
	}
	d.PeriodFrames = p.PeriodFrames
	p.comps[d.ID] = d
	p.graph.AddNode(d.ID)
	p.invalidate()
	return nil
}

// Remove frees a member component and every buffer attached to it.
func (p *Pipeline) Remove(id uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.editable("remove component"); err != nil {
		return err
	}
	d, ok := p.comps[id]
	if !ok {
		return errors.NotFound("component", id)
	}
	for _, b := range append(append([]*buffer.Buffer(nil), d.Sources...), d.Sinks...) {
		p.disconnect(b)
	}
	d.Free()
	delete(p.comps, id)
	p.graph.RemoveNode(id)
	p.invalidate()
	return nil
}

// Connect joins two member components with b, data flowing from -> to.
func (p *Pipeline) Connect(b *buffer.Buffer, from, to uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.editable("connect"); err != nil {
		return err
	}
	if b == nil {
		return errors.InvalidArgument("buffer", "nil buffer")
	}
	if _, ok := p.buffers[b.ID]; ok {
		return errors.AlreadyExists("buffer", b.ID)
	}
	if from == to {
		return errors.InvalidArgument("buffer", fmt.Sprintf("buffer %d connects component %d to itself", b.ID, from))
	}
	producer, ok := p.comps[from]
	if !ok {
		return errors.NotFound("component", from)
	}
	consumer, ok := p.comps[to]
	if !ok {
		return errors.NotFound("component", to)
	}
	if err := p.graph.AddEdge(from, to); err != nil {
		return errors.Internal(err)
	}
	producer.AddSink(b)
	consumer.AddSource(b)
	p.buffers[b.ID] = b
	p.invalidate()

	p.log.Debug("connected", logger.Fields(logger.FieldBufferID, b.ID, "from", from, "to", to))
	return nil
}

// Disconnect detaches a buffer from both of its components.
func (p *Pipeline) Disconnect(bufferID uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.editable("disconnect"); err != nil {
		return err
	}
	b, ok := p.buffers[bufferID]
	if !ok {
		return errors.NotFound("buffer", bufferID)
	}
	p.disconnect(b)
	p.invalidate()
	return nil
}

func (p *Pipeline) disconnect(b *buffer.Buffer) {
	if d, ok := p.comps[b.Producer]; ok {
		d.Detach(b)
	}
	if d, ok := p.comps[b.Consumer]; ok {
		d.Detach(b)
	}
	p.graph.RemoveEdge(b.Producer, b.Consumer)
	delete(p.buffers, b.ID)
}

// Complete fixes the topological order and the endpoints and moves the
// pipeline from INIT to READY. A cycle is a configuration error.
func (p *Pipeline) Complete(source, sink uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.editable("complete"); err != nil {
		return err
	}
	if p.graph.Len() == 0 {
		return errors.Configuration(fmt.Sprintf("pipeline %d has no components", p.ID))
	}
	src, ok := p.comps[source]
	if !ok {
		return errors.NotFound("component", source)
	}
	snk, ok := p.comps[sink]
	if !ok {
		return errors.NotFound("component", sink)
	}

	ids, err := p.graph.Order()
	if err != nil {
		if stderrors.Is(err, dag.ErrCycle) {
			return errors.Configuration(fmt.Sprintf("pipeline %d graph has a cycle", p.ID)).WithCause(err)
		}
		return errors.Internal(err)
	}
	if len(src.Sources) != 0 {
		return errors.Configuration(fmt.Sprintf("source component %d has upstream buffers", source))
	}
	if len(snk.Sinks) != 0 {
		return errors.Configuration(fmt.Sprintf("sink component %d has downstream buffers", sink))
	}

	order := make([]*comp.Device, len(ids))
	for i, id := range ids {
		order[i] = p.comps[id]
	}
	p.order = order
	p.source, p.sink = src, snk
	p.setStatus(comp.StateReady)

	p.log.Info("pipeline complete", logger.Fields("components", len(order), "source", source, "sink", sink))
	return nil
}
