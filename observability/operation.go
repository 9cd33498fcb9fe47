package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one host command from decode to reply.
type Operation struct {
	Name      string
	RequestID string
	StartTime time.Time
	Metrics   *DSPMetrics
}

// NewOperation starts tracking a command. Metrics may be nil.
func NewOperation(name, requestID string, metrics *DSPMetrics) *Operation {
	return &Operation{
		Name:      name,
		RequestID: requestID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type operationKey struct{}

// WithOperation stores an Operation in the context.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the Operation in ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	if op, ok := ctx.Value(operationKey{}).(*Operation); ok {
		return op
	}
	return nil
}

// Begin starts the command span.
func (op *Operation) Begin(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanIPCCommand)
	span.SetAttributes(attribute.String(AttrOperation, op.Name))
	if op.RequestID != "" {
		span.SetAttributes(attribute.String(AttrRequestID, op.RequestID))
	}
	return WithOperation(ctx, op), span
}

// End closes the span and records the command duration with its reply status.
func (op *Operation) End(ctx context.Context, span trace.Span, status int, err error) {
	d := op.Duration()
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMsg, err.Error()))
	}
	span.SetAttributes(
		attribute.Int(AttrStatus, status),
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
	)
	span.End()
	op.Metrics.RecordIPCCommand(ctx, op.Name, status, d)
}

// Duration returns the elapsed time since the command started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
