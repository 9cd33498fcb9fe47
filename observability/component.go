package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/dspcore/component"
	"github.com/kbukum/dspcore/logger"
)

// Component installs the meter and tracer providers for the lifetime of
// the service. With Enabled false it starts nothing and the global no-op
// providers stay in place.
type Component struct {
	cfg                   Config
	service, version, env string
	log                   *logger.Logger

	mu      sync.Mutex
	mp      *sdkmetric.MeterProvider
	tp      *sdktrace.TracerProvider
	started bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component for a service.
func NewComponent(cfg Config, service, version, env string, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:     cfg,
		service: service,
		version: version,
		env:     env,
		log:     log.WithComponent("telemetry"),
	}
}

// Name returns the component name.
func (c *Component) Name() string { return "telemetry" }

// Start initializes the OTLP exporters when enabled.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = true
	if !c.cfg.Enabled {
		c.log.Debug("telemetry disabled")
		return nil
	}
	mp, err := InitMeter(ctx, c.cfg.MeterConfig(c.service, c.version, c.env))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	tp, err := InitTracer(ctx, c.cfg.TracerConfig(c.service, c.version, c.env))
	if err != nil {
		_ = mp.Shutdown(ctx)
		return fmt.Errorf("telemetry: %w", err)
	}
	c.mp, c.tp = mp, tp
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = false
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	return errors.Join(errs...)
}

// Health reports healthy once started. Export failures are retried by the
// SDK and do not affect health.
func (c *Component) Health(context.Context) component.Health {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.started:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.cfg.Enabled:
		h.Message = "disabled"
	default:
		h.Message = "exporting to " + c.cfg.Endpoint
	}
	return h
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("OTLP %s every %s", c.cfg.Endpoint, c.cfg.Interval)
	}
	return component.Description{Name: "Telemetry", Type: "metrics", Details: details}
}
