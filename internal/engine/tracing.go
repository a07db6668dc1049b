// Tracing instrumentation for the engine.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quadflow/quadflow/internal/event"
	"github.com/quadflow/quadflow/internal/phase"
)

func tracer() trace.Tracer {
	return otel.Tracer("quadflow/engine")
}

// startEventSpan starts a span for one event application.
func startEventSpan(ctx context.Context, ev *event.Event) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "engine.apply")
	span.SetAttributes(
		attribute.String("event.type", string(ev.Type)),
		attribute.String("event.correlation_id", ev.CorrelationID),
	)
	return ctx, span
}

// endEventSpan ends an event span with routing info.
func endEventSpan(span trace.Span, res RouteResult) {
	span.SetAttributes(
		attribute.String("event.role", string(res.Role)),
		attribute.Bool("event.created_output", res.Created),
		attribute.Bool("event.ignored", res.Ignored),
	)
	span.End()
}

// startCommandSpan starts a span for a phase command.
func startCommandSpan(ctx context.Context, cmd phase.Command, from phase.State) (context.Context, trace.Span) {
	ctx, span := tracer().Start(ctx, "engine.command")
	span.SetAttributes(
		attribute.String("command.kind", string(cmd.Kind)),
		attribute.String("phase.from", string(from)),
	)
	return ctx, span
}

// endCommandSpan ends a command span with the resulting state.
func endCommandSpan(span trace.Span, to phase.State, moved bool) {
	span.SetAttributes(
		attribute.String("phase.to", string(to)),
		attribute.Bool("phase.moved", moved),
	)
	span.End()
}
