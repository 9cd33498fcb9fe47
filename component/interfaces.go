package component

import "context"

// HealthStatus represents the health state of a service.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a service.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed service.
type Component interface {
	// Name returns the unique name of the service.
	Name() string

	// Start starts the service. It must not block.
	Start(ctx context.Context) error

	// Stop shuts the service down and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health of the service.
	Health(ctx context.Context) Health
}

// Description is a one-line summary logged at startup.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the service: "runtime", "server", "sse", "metrics".
	Type string
	// Details is shown next to the name, e.g. "cores=2 tick=1ms".
	Details string
	// Port is the primary port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by services to describe themselves
// in the startup summary.
type Describable interface {
	Describe() Description
}
