package observability

import "fmt"

// HealthStatus is the health state of a runtime part or of the daemon.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthKind says what a Health entry describes.
type HealthKind string

const (
	HealthKindCore      HealthKind = "core"
	HealthKindPipeline  HealthKind = "pipeline"
	HealthKindComponent HealthKind = "component"
)

// Health describes one core, one pipeline or one lifecycle component.
type Health struct {
	Name    string            `json:"name"`
	Kind    HealthKind        `json:"kind,omitempty"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// CoreHealth reports a core. A core whose loop stopped with crash is down;
// details carry its tick counters.
func CoreHealth(id int, crash error, details map[string]string) Health {
	h := Health{
		Name:    fmt.Sprintf("core-%d", id),
		Kind:    HealthKindCore,
		Status:  HealthStatusUp,
		Details: details,
	}
	if crash != nil {
		h.Status = HealthStatusDown
		h.Message = crash.Error()
	}
	return h
}

// PipelineHealth reports a pipeline. An xrun degrades it without taking
// the daemon down: other pipelines keep running.
func PipelineHealth(id uint32, core int, state string, xrun bool) Health {
	h := Health{
		Name:   fmt.Sprintf("pipeline-%d", id),
		Kind:   HealthKindPipeline,
		Status: HealthStatusUp,
		Details: map[string]string{
			"core":   fmt.Sprint(core),
			"status": state,
		},
	}
	if xrun {
		h.Status = HealthStatusDegraded
		h.Message = "xrun"
	}
	return h
}

// HealthSummary counts entries by kind and the ones not up.
type HealthSummary struct {
	Cores         int `json:"cores"`
	CoresDown     int `json:"cores_down"`
	Pipelines     int `json:"pipelines"`
	PipelineXruns int `json:"pipeline_xruns"`
}

// ServiceHealth aggregates the daemon's health entries.
type ServiceHealth struct {
	Service    string        `json:"service"`
	Status     HealthStatus  `json:"status"`
	Version    string        `json:"version,omitempty"`
	Summary    HealthSummary `json:"summary"`
	Components []Health      `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent appends an entry. Down wins over degraded.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)

	switch h.Kind {
	case HealthKindCore:
		sh.Summary.Cores++
		if h.Status == HealthStatusDown {
			sh.Summary.CoresDown++
		}
	case HealthKindPipeline:
		sh.Summary.Pipelines++
		if h.Status == HealthStatusDegraded {
			sh.Summary.PipelineXruns++
		}
	}

	switch h.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}
