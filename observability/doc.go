// Package observability wires OpenTelemetry metrics and tracing into the
// DSP runtime.
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{...})
//	defer mp.Shutdown(ctx)
//	m, err := observability.NewDSPMetrics(observability.Meter("dspd"))
//	m.RecordTick(ctx, core, d)
//
// A nil *DSPMetrics is valid and records nothing, so packages can be built
// and tested without a meter.
//
// Tracing:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanIPCCommand)
//	defer span.End()
//
// Health:
//
//	h := observability.NewServiceHealth("dspd", version)
//	h.AddComponent(observability.CoreHealth(0, nil, nil))
//	h.AddComponent(observability.PipelineHealth(1, 0, "ACTIVE", true)) // degraded
package observability
