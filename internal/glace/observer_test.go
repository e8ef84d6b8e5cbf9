package glace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hazae41/glace/internal/eventstore"
)

func TestTracingObserverSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t)
	f.write(t, "index.html", page)
	f.write(t, "a.js", `export default function () { return "<h1>hello</h1>" }`)

	report, err := f.builder(t, WithObserver(NewTracingObserver(tp.Tracer("test")))).Build(context.Background(), "test")
	require.NoError(t, err)

	spans := rec.Ended()
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}
	root, ok := byName["glace.build"]
	require.True(t, ok)
	assert.Len(t, spans, len(pipeline())+1)
	for _, def := range pipeline() {
		s, ok := byName["glace."+string(def.Name)]
		require.True(t, ok, def.Name)
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}
	assert.Contains(t, root.Attributes(), attribute.String("glace.outcome", string(report.Outcome)))
}

func TestTracingObserverFailedBuild(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t)
	f.write(t, "index.html", `<html><body><script data-bundle="client" src="/missing.js"></script></body></html>`)

	_, err := f.builder(t, WithObserver(NewTracingObserver(tp.Tracer("test")))).Build(context.Background(), "test")
	require.Error(t, err)

	var failed int
	for _, s := range rec.Ended() {
		if s.Status().Code == codes.Error {
			failed++
		}
	}
	assert.Equal(t, 2, failed, "the failing stage and the build span")
}

func TestJournalObserverRecordsBuild(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(t.TempDir() + "/events.sqlite")
	require.NoError(t, err)
	journal := eventstore.NewJournal(store, nil, nil)
	t.Cleanup(func() { _ = journal.Close() })

	f := newFixture(t)
	f.write(t, "index.html", `<html><body><p>static</p></body></html>`)

	report, err := f.builder(t, WithObserver(JournalObserver{Journal: journal})).Build(context.Background(), "test")
	require.NoError(t, err)

	summary, ok := journal.Projection().Build(report.BuildID)
	require.True(t, ok)
	assert.Equal(t, string(OutcomeSuccess), summary.Status)
	assert.Equal(t, "test", summary.Trigger)
	assert.Equal(t, 1, summary.Documents)
	assert.Len(t, summary.Stages, len(pipeline()))
}
