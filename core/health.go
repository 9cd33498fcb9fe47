package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/observability"
)

// Health is unhealthy when a core crashed and degraded while any pipeline
// carries the xrun flag.
func (r *Runtime) Health(context.Context) component.Health {
	h := component.Health{Name: r.Name(), Status: component.StatusHealthy}

	var crashed []string
	for _, c := range r.cores {
		if c.Crashed() {
			crashed = append(crashed, fmt.Sprint(c.ID))
		}
	}
	if len(crashed) > 0 {
		h.Status = component.StatusUnhealthy
		h.Message = "crashed cores: " + strings.Join(crashed, ",")
		return h
	}
	if ids := r.pipes.Xruns(); len(ids) > 0 {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("xrun on pipelines %v", ids)
	}
	return h
}

// Report returns one entry per core and one per pipeline.
func (r *Runtime) Report(context.Context) []observability.Health {
	var out []observability.Health
	for _, c := range r.cores {
		out = append(out, observability.CoreHealth(c.ID, c.Err(), map[string]string{
			"enabled": fmt.Sprint(r.bus.Enabled(c.ID)),
			"ticks":   fmt.Sprint(c.Ticks()),
			"queued":  fmt.Sprint(r.sched.Queued(c.ID)),
		}))
	}
	for _, p := range r.pipes.All() {
		out = append(out, observability.PipelineHealth(p.ID, p.Core, p.Status().String(), p.Xrun()))
	}
	return out
}
