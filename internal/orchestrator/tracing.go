package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// newTracerProvider builds an in-process, always-on TracerProvider with
// no span processor/exporter attached. Grounded on the teacher's
// tracing.Collector use in internal/agent/loop_tracing.go
// (emitLLMSpan/emitToolSpan/emitAgentSpan), reworked onto real
// go.opentelemetry.io/otel spans rather than the teacher's bespoke
// store.TraceData rows — SPEC_FULL has no remote observability backend,
// so spans are recorded in-process and discarded, which still exercises
// otel/sdk/trace without inventing a network sink nothing asks for.
func newTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
}

func (o *Orchestrator) tracer() oteltrace.Tracer {
	return o.tracerProvider.Tracer("agentrt/orchestrator")
}

// startTurnSpan opens the root span for one chat turn.
func (o *Orchestrator) startTurnSpan(ctx context.Context, sessionID string) (context.Context, oteltrace.Span) {
	return o.tracer().Start(ctx, "chat_turn", oteltrace.WithAttributes(
		attribute.String("session_id", sessionID),
	))
}

// startRoundSpan opens a span for one provider completion round.
func (o *Orchestrator) startRoundSpan(ctx context.Context, round int) (context.Context, oteltrace.Span) {
	return o.tracer().Start(ctx, "round", oteltrace.WithAttributes(
		attribute.Int("round", round),
	))
}

// startToolSpan opens a span for one tool-call execution.
func (o *Orchestrator) startToolSpan(ctx context.Context, name, callID string) (context.Context, oteltrace.Span) {
	return o.tracer().Start(ctx, "tool_call", oteltrace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.call_id", callID),
	))
}

func endSpanWithErr(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// registerGlobalTracerProvider installs tp as the global provider, the
// way the teacher's gateway wires its optional OTel exporter in
// cmd/gateway.go's initOTelExporter, minus the build-tag-gated OTLP
// export step (no remote collector in scope here).
func registerGlobalTracerProvider(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
}
