package pipeline

import (
	"github.com/kbukum/dspcore/comp"
	"github.com/kbukum/dspcore/errors"
)

// Position is how far a stream has moved, as reported by one component.
type Position struct {
	PipelineID  uint32 `json:"pipeline_id"`
	ComponentID uint32 `json:"component_id"`
	Frames      uint64 `json:"frames"`
	Xrun        bool   `json:"xrun"`
}

// Position reads AttrPosition from compID, or with compID 0 from the sink
// endpoint and then the source endpoint. Run it on the owning core.
func (p *Pipeline) Position(compID uint32) (Position, error) {
	pos := Position{PipelineID: p.ID, Xrun: p.Xrun()}

	var candidates []*comp.Device
	if compID != 0 {
		d, err := p.Component(compID)
		if err != nil {
			return pos, err
		}
		candidates = append(candidates, d)
	} else {
		source, sink := p.Endpoints()
		if source == nil || sink == nil {
			return pos, errors.InvalidState(p.String(), "INIT", "position")
		}
		candidates = append(candidates, sink, source)
	}

	for _, d := range candidates {
		v, err := d.Attribute(comp.AttrPosition)
		if err != nil {
			continue
		}
		frames, ok := v.(uint64)
		if !ok {
			continue
		}
		pos.ComponentID = d.ID
		pos.Frames = frames
		return pos, nil
	}
	return pos, errors.NotFound("position", p.ID)
}
