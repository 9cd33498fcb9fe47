package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/dspcore/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	Interval time.Duration
}

// InitMeter initializes the OTLP meter provider and installs it globally.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// DSPMetrics holds the runtime instruments.
type DSPMetrics struct {
	tickDuration   metric.Float64Histogram
	tickOverrun    metric.Int64Counter
	taskRuns       metric.Int64Counter
	xruns          metric.Int64Counter
	triggers       metric.Int64Counter
	idcMessages    metric.Int64Counter
	idcBusy        metric.Int64Counter
	ipcCommandTime metric.Float64Histogram
}

// NewDSPMetrics creates the runtime instruments on the given meter.
func NewDSPMetrics(meter metric.Meter) (*DSPMetrics, error) {
	var (
		m   DSPMetrics
		err error
	)

	if m.tickDuration, err = meter.Float64Histogram("ll.tick.duration",
		metric.WithDescription("Duration of one LL scheduler tick"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating ll.tick.duration histogram: %w", err)
	}
	if m.tickOverrun, err = meter.Int64Counter("ll.tick.overrun",
		metric.WithDescription("LL ticks that exceeded the watchdog budget"),
	); err != nil {
		return nil, fmt.Errorf("creating ll.tick.overrun counter: %w", err)
	}
	if m.taskRuns, err = meter.Int64Counter("task.run.total",
		metric.WithDescription("Task runs by scheduler and result"),
	); err != nil {
		return nil, fmt.Errorf("creating task.run.total counter: %w", err)
	}
	if m.xruns, err = meter.Int64Counter("pipeline.xrun.total",
		metric.WithDescription("Xruns raised by pipelines"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.xrun.total counter: %w", err)
	}
	if m.triggers, err = meter.Int64Counter("pipeline.trigger.total",
		metric.WithDescription("Pipeline triggers by command and status"),
	); err != nil {
		return nil, fmt.Errorf("creating pipeline.trigger.total counter: %w", err)
	}
	if m.idcMessages, err = meter.Int64Counter("idc.message.total",
		metric.WithDescription("IDC messages accepted by type"),
	); err != nil {
		return nil, fmt.Errorf("creating idc.message.total counter: %w", err)
	}
	if m.idcBusy, err = meter.Int64Counter("idc.busy.total",
		metric.WithDescription("IDC sends refused because the mailbox was full"),
	); err != nil {
		return nil, fmt.Errorf("creating idc.busy.total counter: %w", err)
	}
	if m.ipcCommandTime, err = meter.Float64Histogram("ipc.command.duration",
		metric.WithDescription("Duration of host commands"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating ipc.command.duration histogram: %w", err)
	}
	return &m, nil
}

// RecordTick records one LL tick.
func (m *DSPMetrics) RecordTick(ctx context.Context, core int, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Int("core", core)))
}

// RecordOverrun records a watchdog overrun on a core.
func (m *DSPMetrics) RecordOverrun(ctx context.Context, core int) {
	if m == nil {
		return
	}
	m.tickOverrun.Add(ctx, 1, metric.WithAttributes(attribute.Int("core", core)))
}

// RecordTaskRun records a task run and the state it returned.
func (m *DSPMetrics) RecordTaskRun(ctx context.Context, core int, scheduler, result string) {
	if m == nil {
		return
	}
	m.taskRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("core", core),
		attribute.String("scheduler", scheduler),
		attribute.String("result", result),
	))
}

// RecordXrun records an xrun on a pipeline.
func (m *DSPMetrics) RecordXrun(ctx context.Context, pipelineID uint32) {
	if m == nil {
		return
	}
	m.xruns.Add(ctx, 1, metric.WithAttributes(attribute.Int64("pipeline_id", int64(pipelineID))))
}

// RecordTrigger records a pipeline trigger outcome.
func (m *DSPMetrics) RecordTrigger(ctx context.Context, pipelineID uint32, cmd string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.triggers.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("pipeline_id", int64(pipelineID)),
		attribute.String("cmd", cmd),
		attribute.String("status", status),
	))
}

// RecordIDCMessage records an accepted IDC message.
func (m *DSPMetrics) RecordIDCMessage(ctx context.Context, from, to int, msgType string) {
	if m == nil {
		return
	}
	m.idcMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("from", from),
		attribute.Int("to", to),
		attribute.String("type", msgType),
	))
}

// RecordIDCBusy records a refused IDC send.
func (m *DSPMetrics) RecordIDCBusy(ctx context.Context, from, to int) {
	if m == nil {
		return
	}
	m.idcBusy.Add(ctx, 1, metric.WithAttributes(attribute.Int("from", from), attribute.Int("to", to)))
}

// RecordIPCCommand records a host command with its reply status.
func (m *DSPMetrics) RecordIPCCommand(ctx context.Context, op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.ipcCommandTime.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.Int("status", status),
	))
}
