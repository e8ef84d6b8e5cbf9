package glace

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingObserver turns each build into a span with one child span per stage.
type TracingObserver struct {
	tracer trace.Tracer
	mu     sync.Mutex
	spans  map[string]trace.Span
}

func NewTracingObserver(tracer trace.Tracer) *TracingObserver {
	return &TracingObserver{tracer: tracer, spans: make(map[string]trace.Span)}
}

func (o *TracingObserver) OnBuildStart(r *BuildReport) {
	_, span := o.tracer.Start(context.Background(), "glace.build",
		trace.WithTimestamp(r.Start),
		trace.WithAttributes(
			attribute.String("glace.build_id", r.BuildID),
			attribute.String("glace.trigger", r.Trigger),
			attribute.String("glace.mode", r.Mode),
			attribute.String("glace.input", r.Input),
			attribute.String("glace.output", r.Output),
		))
	o.mu.Lock()
	o.spans[r.BuildID] = span
	o.mu.Unlock()
}

func (o *TracingObserver) OnStageComplete(r *BuildReport, stage StageName, d time.Duration, err error) {
	parent, ok := o.span(r.BuildID)
	if !ok {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(trace.ContextWithSpan(context.Background(), parent), "glace."+string(stage),
		trace.WithTimestamp(end.Add(-d)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

func (o *TracingObserver) OnBuildComplete(r *BuildReport) {
	o.mu.Lock()
	span, ok := o.spans[r.BuildID]
	delete(o.spans, r.BuildID)
	o.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("glace.outcome", string(r.Outcome)),
		attribute.Int("glace.documents", r.Documents),
		attribute.Int("glace.artifacts", r.Artifacts),
		attribute.Int("glace.copied", r.Copied),
		attribute.Int("glace.rendered", r.Rendered+r.Prerendered),
		attribute.Int("glace.warnings", r.Warnings),
	)
	if r.Err != nil {
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, string(r.FailedStage))
	}
	span.End(trace.WithTimestamp(r.End))
}

func (o *TracingObserver) span(id string) (trace.Span, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.spans[id]
	return s, ok
}
